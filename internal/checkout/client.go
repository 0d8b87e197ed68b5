package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/realizeit/storefront/internal/pricing"
)

var (
	// ErrUnavailable is returned when the checkout endpoint cannot be reached.
	ErrUnavailable = errors.New("checkout endpoint unavailable")
	// ErrMalformedResponse is returned when the endpoint answers 2xx without a usable redirect.
	ErrMalformedResponse = errors.New("checkout endpoint returned a malformed response")
)

// RejectedError carries a non-2xx answer from the checkout endpoint verbatim.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("checkout rejected (%d): %s", e.Status, e.Body)
}

// Submission is the payload posted to the hosted checkout endpoint.
type Submission struct {
	Items    []pricing.LineItem `json:"items"`
	Totals   pricing.Breakdown  `json:"totals"`
	Shipping ShippingForm       `json:"shipping"`
	Locale   string             `json:"locale"`
}

// Redirect is where the customer continues to pay. Exactly one field is set.
type Redirect struct {
	URL       string `json:"url,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Reference returns the identifier recorded for the submission.
func (r Redirect) Reference() string {
	if r.SessionID != "" {
		return r.SessionID
	}
	return r.URL
}

// Doer executes outbound HTTP requests; resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client submits checkouts to the hosted payment page endpoint.
type Client struct {
	Endpoint string
	HTTP     Doer
}

// maxResponseBody bounds how much of an upstream answer is read.
const maxResponseBody = 64 << 10

// Submit posts the submission and returns the redirect target.
func (c Client) Submit(ctx context.Context, sub Submission) (Redirect, error) {
	if c.HTTP == nil || strings.TrimSpace(c.Endpoint) == "" {
		return Redirect{}, fmt.Errorf("checkout client not configured: %w", ErrUnavailable)
	}
	body, err := json.Marshal(sub)
	if err != nil {
		return Redirect{}, fmt.Errorf("encode submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Redirect{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Redirect{}, err
		}
		return Redirect{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Redirect{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Redirect{}, &RejectedError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out Redirect
	if err := json.Unmarshal(raw, &out); err != nil {
		return Redirect{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	out.URL = strings.TrimSpace(out.URL)
	out.SessionID = strings.TrimSpace(out.SessionID)
	if out.URL == "" && out.SessionID == "" {
		return Redirect{}, ErrMalformedResponse
	}
	if out.URL != "" {
		out.SessionID = ""
	}
	return out, nil
}
