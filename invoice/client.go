// Package invoice is the client side of the backend invoice/commerce API
// boundary: it fetches the payment options and network name an invoice
// declares. The backend itself is an external collaborator.
package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	checkout "github.com/csacanam/deramp-checkout-go"
)

// Invoice is the payment-relevant slice of a backend invoice.
type Invoice struct {
	// ID is the backend invoice identifier.
	ID string `json:"id"`

	// Network is the backend-declared network name, resolved through the
	// chain registry and nowhere else.
	Network string `json:"network"`

	// Options are the invoice-declared ways to pay.
	Options []checkout.PaymentOption `json:"paymentOptions"`

	// ExpiresAt is when the invoice stops accepting payment.
	ExpiresAt time.Time `json:"expiresAt"`
}

// ResolveChain maps the invoice's backend network name to a registry chain.
func (inv *Invoice) ResolveChain(reg *checkout.Registry) (*checkout.ChainDescriptor, error) {
	return reg.ResolveByBackendName(inv.Network)
}

// Client talks to the backend invoice API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithHTTPClient sets a custom underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

// NewClient creates an invoice API client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// GetInvoice fetches one invoice by ID.
func (c *Client) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	endpoint := fmt.Sprintf("%s/invoices/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoice request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("invoice request returned %d: %s", resp.StatusCode, string(body))
	}

	var inv Invoice
	if err := json.NewDecoder(resp.Body).Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to decode invoice: %w", err)
	}
	return &inv, nil
}
