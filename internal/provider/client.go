package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Order is the slice of the provider's order resource we care about when
// cross-checking a webhook delivery.
type Order struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
	Email    string  `json:"user_email"`
}

var (
	ErrOrderNotFound = errors.New("provider order not found")
	ErrUnavailable   = errors.New("provider API unavailable")
)

// Client talks to the payment provider's order API. Calls run through a
// circuit breaker so a provider outage degrades to "skip verification"
// instead of stalling webhook processing.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*Order]
	baseURL string
	apiKey  string
}

func NewClient(baseURL, apiKey string) *Client {
	settings := gobreaker.Settings{
		Name:    "provider-orders",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[*Order](settings),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// GetOrder fetches one order by provider ID.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	order, err := c.breaker.Execute(func() (*Order, error) {
		return c.fetchOrder(ctx, orderID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return order, nil
}

func (c *Client) fetchOrder(ctx context.Context, orderID string) (*Order, error) {
	url := fmt.Sprintf("%s/v1/orders/%s", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrOrderNotFound
	default:
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	// The provider wraps resources in a JSON:API envelope
	var envelope struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Status    string  `json:"status"`
				Total     float64 `json:"total"`
				Currency  string  `json:"currency"`
				UserEmail string  `json:"user_email"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}

	return &Order{
		ID:       envelope.Data.ID,
		Status:   envelope.Data.Attributes.Status,
		Total:    envelope.Data.Attributes.Total,
		Currency: envelope.Data.Attributes.Currency,
		Email:    envelope.Data.Attributes.UserEmail,
	}, nil
}
