// Package api implements the client connections over the invoicedesk HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/polkiloo/invoicedesk/internal/client"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/server/http/dto"
)

const maxResponseBytes = 1 << 20

// Client talks to one invoicedesk backend on behalf of one signed-in identity.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	token    string
	identity *model.Identity
	auth     client.Notifier[*model.Identity]
}

var (
	_ client.AuthProvider        = (*Client)(nil)
	_ client.RecordStore         = (*Client)(nil)
	_ client.SubscriptionService = (*Client)(nil)
	_ client.Uploader            = (*Client)(nil)
	_ client.HealthChecker       = (*Client)(nil)
)

// New creates a client for cfg.APIURL. Requests other than the invoice
// stream are bounded by cfg.RequestTimeout.
func New(cfg client.Config, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("%w: api url must be absolute", client.ErrNotConfigured)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{},
		timeout:    cfg.RequestTimeout,
		logger:     logger,
	}
	c.auth.Publish(nil)
	return c, nil
}

// NewConnections wires one Client into every connection slot.
func NewConnections(cfg client.Config, logger *slog.Logger) (*client.Connections, error) {
	c, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &client.Connections{
		Auth:          c,
		Records:       c,
		Subscriptions: c,
		Uploads:       c,
		Health:        c,
	}, nil
}

// Health probes GET /api/health.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.baseURL.String(), "/") + path
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// doJSON sends in as a JSON body when non-nil and decodes a 2xx answer into
// out when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func remoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	var body dto.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return &client.RemoteError{Status: resp.StatusCode, Message: body.Error}
	}
	return &client.RemoteError{Status: resp.StatusCode}
}
