package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"arxivdigest/internal/netutil"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://export.arxiv.org/api/query"
	DefaultUserAgent = "arxiv-digest/0.1"

	// maxFeedBytes caps a response; a full page of results is far below it.
	maxFeedBytes = 10 << 20
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL   string
	UserAgent string
	Network   netutil.Options
}

// Client issues queries against the arXiv Atom API.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    netutil.NewClient(cfg.Network, logger),
		logger:    logger,
	}
}

// Fetch performs a GET with params and returns the raw response body.
// Transport failures and non-2xx statuses wrap ErrNetwork, failed TLS
// verification wraps ErrCertificate. Nothing is retried.
func (c *Client) Fetch(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("fetching feed", zap.String("url", reqURL))
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, netutil.ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected response status %d", ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, netutil.ClassifyError(err)
	}
	c.logger.Debug("feed fetched", zap.Int("bytes", len(body)))
	return body, nil
}
