package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SubscriptionDetail is the richer view fetched from the processor after a
// checkout: authoritative interval plus display metadata.
type SubscriptionDetail struct {
	Interval    string `json:"interval"`
	PlanName    string `json:"plan_name"`
	AmountCents int64  `json:"amount"`
}

// Lookup fetches subscription details from the processor. Implementations
// must respect ctx cancellation; callers bound it with the configured
// lookup timeout and fall back to defaults on error.
type Lookup interface {
	GetSubscription(ctx context.Context, ref string) (*SubscriptionDetail, error)
	CancelAtPeriodEnd(ctx context.Context, ref string, cancel bool) error
}

var ErrLookupFailed = errors.New("billing processor lookup failed")

// Client talks to the processor's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetSubscription(ctx context.Context, ref string) (*SubscriptionDetail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/subscriptions/"+ref, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var detail SubscriptionDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return &detail, nil
}

func (c *Client) CancelAtPeriodEnd(ctx context.Context, ref string, cancel bool) error {
	body, _ := json.Marshal(map[string]bool{"cancel_at_period_end": cancel})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/subscriptions/"+ref, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}
	return nil
}
