// Package gateway is the HTTP client for the hosted payment checkout
// provider. It speaks the provider's form-encoded API and maps provider
// failures onto the payment domain errors.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leaseledger/leaseledger/internal/payment/domain"
)

type checkoutResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client implements domain.Gateway against a remote checkout provider.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.Checkout, error) {
	if c.apiKey == "" || c.baseURL == "" {
		return nil, errors.New("gateway_not_configured")
	}

	values := url.Values{}
	values.Set("reference", req.Reference)
	values.Set("amount", req.Amount.StringFixed(2))
	values.Set("description", req.Description)
	values.Set("payer[name]", req.PayerName)
	values.Set("payer[email]", req.PayerEmail)
	values.Set("redirect[success]", req.SuccessURL)
	values.Set("redirect[failure]", req.FailureURL)
	values.Set("redirect[cancel]", req.CancelURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkouts", strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// Retried initiations for the same reference must not fan out into
	// several live checkouts at the provider.
	httpReq.Header.Set("Idempotency-Key", req.Reference)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var gwErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&gwErr); err != nil {
			return nil, errors.New("checkout_request_failed")
		}
		message := strings.TrimSpace(gwErr.Error.Message)
		if message == "" {
			message = "checkout_request_failed"
		}
		return nil, errors.New(message)
	}

	var checkout checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
		return nil, err
	}
	if checkout.CheckoutURL == "" {
		return nil, errors.New("checkout_response_invalid")
	}
	reference := checkout.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &domain.Checkout{
		CheckoutURL: checkout.CheckoutURL,
		Reference:   reference,
	}, nil
}
