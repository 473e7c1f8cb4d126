package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-like-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_PostsReply(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botsecret/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Len(t, r.Header.Get("X-Delivery-ID"), 26)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL+"/", "secret")
	err := n.Notify(context.Background(), domain.NotifyTarget{ChatID: -100, MessageID: 7}, "done")
	require.NoError(t, err)
	assert.Equal(t, int64(-100), got.ChatID)
	assert.Equal(t, int64(7), got.ReplyToMessageID)
	assert.Equal(t, "done", got.Text)
}

func TestNotify_APIRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL, "t").Notify(context.Background(), domain.NotifyTarget{ChatID: 1}, "x")
	assert.ErrorContains(t, err, "chat not found")
}

func TestNotify_OKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"blocked"}`))
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL, "t").Notify(context.Background(), domain.NotifyTarget{ChatID: 1}, "x")
	assert.ErrorContains(t, err, "blocked")
}
