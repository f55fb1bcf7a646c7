// Package address calls the marketplace's external user/address service
// to resolve a free-text address reference to an address_id and pincode.
// User/address CRUD itself is out of scope (spec.md §1); this client is
// the external collaborator boundary the booking workflow resolves
// against, grounded on nightowl's bookowl.Client integration-API
// pattern (wisbric-nightowl/pkg/bookowl/client.go).
package address

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/converge-ai/convergeai/workflow"
)

// Config configures the address service client.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client calls the address service's resolve endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ workflow.AddressResolver = (*Client)(nil)

// New builds an address service Client with a 5-second timeout.
func New(cfg Config) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type resolveResponse struct {
	Found     bool   `json:"found"`
	AddressID uint64 `json:"address_id"`
	Pincode   string `json:"pincode"`
}

// Resolve asks the address service to match text against userRef's saved
// addresses (e.g. "my home address", a free-text line, or a raw pincode).
// A false-and-nil-error result means no match, not an error.
func (c *Client) Resolve(ctx context.Context, userRef uint64, text string) (workflow.ResolvedAddress, bool, error) {
	if c.baseURL == "" {
		return workflow.ResolvedAddress{}, false, nil
	}

	q := url.Values{}
	q.Set("user_ref", fmt.Sprint(userRef))
	q.Set("text", text)
	reqURL := c.baseURL + "/v1/addresses/resolve?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return workflow.ResolvedAddress{}, false, fmt.Errorf("address: building request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return workflow.ResolvedAddress{}, false, fmt.Errorf("address: calling address service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return workflow.ResolvedAddress{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return workflow.ResolvedAddress{}, false, fmt.Errorf("address: address service returned HTTP %d", resp.StatusCode)
	}

	var out resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return workflow.ResolvedAddress{}, false, fmt.Errorf("address: decoding response: %w", err)
	}
	if !out.Found {
		return workflow.ResolvedAddress{}, false, nil
	}
	return workflow.ResolvedAddress{AddressID: out.AddressID, Pincode: out.Pincode}, true, nil
}
