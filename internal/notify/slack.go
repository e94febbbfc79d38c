// Package notify delivers digests to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"arxivdigest/internal/netutil"

	"go.uber.org/zap"
)

// Slack posts text messages to one incoming webhook URL.
type Slack struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

func NewSlack(webhookURL string, opts netutil.Options, logger *zap.Logger) *Slack {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Slack{
		webhookURL: webhookURL,
		client:     netutil.NewClient(opts, logger),
		logger:     logger,
	}
}

type slackMessage struct {
	Text string `json:"text"`
}

// Notify sends text once. Failures wrap netutil.ErrNetwork or
// netutil.ErrCertificate and are not retried.
func (s *Slack) Notify(ctx context.Context, text string) error {
	payload, err := json.Marshal(slackMessage{Text: text})
	if err != nil {
		return fmt.Errorf("error encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return netutil.ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: webhook returned status %d: %s", netutil.ErrNetwork, resp.StatusCode, bytes.TrimSpace(body))
	}

	s.logger.Info("digest delivered", zap.Int("bytes", len(payload)))
	return nil
}
