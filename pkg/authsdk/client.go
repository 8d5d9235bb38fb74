package authsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultUserAgent is sent unless SDKClient.UserAgent is changed.
const DefaultUserAgent = "searchlab-authsdk"

// SDKClient is a client for the SearchLab authentication service. It covers
// the unauthenticated endpoints; use an Agent for anything needing a token.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

// NewSDKClient creates a client with a 10s request timeout.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		UserAgent:  DefaultUserAgent,
	}
}

// newRequest builds a request against BaseURL with the client headers set.
func (c *SDKClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
