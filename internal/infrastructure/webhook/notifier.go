// Package webhook delivers outcome messages through a Telegram Bot API compatible endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-like-relay/internal/domain"
	"github.com/go-like-relay/internal/pkg/id"
)

const defaultTimeout = 10 * time.Second

// Notifier posts to <baseURL>/bot<token>/sendMessage, replying to the original message.
type Notifier struct {
	endpoint string
	http     *http.Client
}

func NewNotifier(baseURL, botToken string) *Notifier {
	return &Notifier{
		endpoint: strings.TrimRight(baseURL, "/") + "/bot" + botToken + "/sendMessage",
		http:     &http.Client{Timeout: defaultTimeout},
	}
}

type sendMessageRequest struct {
	ChatID                   int64  `json:"chat_id"`
	Text                     string `json:"text"`
	ReplyToMessageID         int64  `json:"reply_to_message_id,omitempty"`
	AllowSendingWithoutReply bool   `json:"allow_sending_without_reply"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *Notifier) Notify(ctx context.Context, target domain.NotifyTarget, text string) error {
	deliveryID := id.New()
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                   target.ChatID,
		Text:                     text,
		ReplyToMessageID:         target.MessageID,
		AllowSendingWithoutReply: true,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", deliveryID)

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, out.Description)
	}
	slog.Debug("outcome delivered", "delivery_id", deliveryID, "chat_id", target.ChatID)
	return nil
}
