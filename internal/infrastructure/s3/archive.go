package s3infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-like-relay/internal/config"
	"github.com/go-like-relay/internal/domain"
	"github.com/go-like-relay/internal/infrastructure/dynamo"
	"github.com/go-like-relay/internal/pkg/id"
)

// ObjectAPI is the subset of the S3 client ReceiptArchive needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReceiptArchive keeps one JSON receipt per processed request.
// Keys look like receipts/2026/05/10/<code>/<ulid>.json.
type ReceiptArchive struct {
	client ObjectAPI
	bucket string
}

// Receipt is the archived record of a processed request.
type Receipt struct {
	ID      string                      `json:"id"`
	Request *domain.VerificationRequest `json:"request"`
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := dynamo.LoadAWSConfig(cfg, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for S3: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

func NewReceiptArchive(client ObjectAPI, bucket string) *ReceiptArchive {
	return &ReceiptArchive{client: client, bucket: bucket}
}

// Store writes the receipt for req.
func (a *ReceiptArchive) Store(ctx context.Context, req *domain.VerificationRequest) error {
	_, err := a.put(ctx, req)
	return err
}

// put writes the receipt for req and returns its object key.
func (a *ReceiptArchive) put(ctx context.Context, req *domain.VerificationRequest) (string, error) {
	at := time.Now().UTC()
	if req.ProcessedAt != nil {
		at = req.ProcessedAt.UTC()
	}
	rec := Receipt{ID: id.At(at), Request: req}
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal receipt: %w", err)
	}

	key := receiptKey(at, req.Code, rec.ID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return key, nil
}

func receiptKey(at time.Time, code, receiptID string) string {
	return fmt.Sprintf("receipts/%s/%s/%s.json", at.Format("2006/01/02"), code, receiptID)
}
