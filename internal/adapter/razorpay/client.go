package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"
)

const defaultTotalCount = 12

// Client creates subscriptions at the payment provider.
type Client interface {
	CreateSubscription(ctx context.Context, userID string) (*Subscription, error)
	KeyID() string
	VerifySignature(paymentID, subscriptionID, signature string) bool
}

// Subscription is the provider side subscription record.
type Subscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type createSubscriptionRequest struct {
	PlanID         string            `json:"plan_id"`
	TotalCount     int               `json:"total_count"`
	CustomerNotify int               `json:"customer_notify"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Options configures HTTPClient.
type Options struct {
	APIURL    string
	KeyID     string
	KeySecret string
	PlanID    string
}

// HTTPClient talks to the Razorpay REST API.
type HTTPClient struct {
	baseURL    *url.URL
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient validates options and creates a client with default timeout.
func NewHTTPClient(opts Options, logger *slog.Logger) (*HTTPClient, error) {
	if opts.KeyID == "" || opts.KeySecret == "" {
		return nil, fmt.Errorf("razorpay key id and secret must be provided")
	}
	if opts.PlanID == "" {
		return nil, fmt.Errorf("razorpay plan id must be provided")
	}
	parsed, err := url.Parse(opts.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parse razorpay url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("razorpay url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		opts:    opts,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (c *HTTPClient) KeyID() string { return c.opts.KeyID }

// CreateSubscription starts a subscription on the configured plan for userID.
func (c *HTTPClient) CreateSubscription(ctx context.Context, userID string) (*Subscription, error) {
	payload, err := json.Marshal(createSubscriptionRequest{
		PlanID:         c.opts.PlanID,
		TotalCount:     defaultTotalCount,
		CustomerNotify: 1,
		Notes:          map[string]string{"user_id": userID},
	})
	if err != nil {
		return nil, err
	}

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/subscriptions")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.opts.KeyID, c.opts.KeySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		_ = json.Unmarshal(body, &apiErr)
		c.logger.Error("razorpay request failed",
			slog.Int("status", resp.StatusCode),
			slog.String("code", apiErr.Error.Code),
			slog.String("description", apiErr.Error.Description),
		)
		if apiErr.Error.Description != "" {
			return nil, fmt.Errorf("razorpay error: %s: %s", resp.Status, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("razorpay error: %s", resp.Status)
	}

	var sub Subscription
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("decode razorpay subscription: %w", err)
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("razorpay returned subscription without id")
	}
	return &sub, nil
}

// VerifySignature checks the checkout signature with the key secret.
func (c *HTTPClient) VerifySignature(paymentID, subscriptionID, signature string) bool {
	return VerifyPaymentSignature(paymentID, subscriptionID, signature, c.opts.KeySecret)
}
