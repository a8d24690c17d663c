package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// ErrNothingExtracted indicates the extraction service found no line items.
var ErrNothingExtracted = errors.New("nothing extracted")

const maxResponseBytes = 1 << 20

// TooManyRequestsError represents rate limiting signal from the extraction service.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// Client turns an uploaded document into invoice data.
type Client interface {
	Extract(ctx context.Context, fileName string, content []byte) (model.InvoiceData, error)
}

// HTTPClient implements Client via HTTP API.
type HTTPClient struct {
	endpoint   *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates HTTP extraction client with default timeout.
func NewHTTPClient(endpoint string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse extractor url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("extractor url must be absolute")
	}
	return &HTTPClient{
		endpoint: parsed,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Extract posts the raw document and parses the returned rows.
func (c *HTTPClient) Extract(ctx context.Context, fileName string, content []byte) (model.InvoiceData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", http.DetectContentType(content))
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-File-Name", filepath.Base(fileName))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		items := ParseRows(string(body))
		if len(items) == 0 {
			return nil, ErrNothingExtracted
		}
		return BuildData(items), nil
	case http.StatusNoContent:
		return nil, ErrNothingExtracted
	case http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, TooManyRequestsError{RetryAfter: retryAfter}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		c.logger.Error("extraction request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("extractor error: %s", resp.Status)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
