package email

import (
	"context"
	"log/slog"
	"time"
)

// NoopSender logs sends instead of delivering them. Used when no
// provider API key is configured (local development, tests).
type NoopSender struct{}

// Send logs the request and reports success.
func (NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	slog.Info("noop_email_send", "to", req.To, "subject", req.Subject)
	return SendResult{MessageID: "noop", SentAt: time.Now()}, nil
}

// SendBatch logs the batch and reports success for every request.
func (NoopSender) SendBatch(_ context.Context, reqs []SendRequest) ([]SendResult, error) {
	slog.Info("noop_email_batch", "count", len(reqs))
	results := make([]SendResult, len(reqs))
	for i := range reqs {
		results[i] = SendResult{MessageID: "noop", SentAt: time.Now()}
	}
	return results, nil
}
