package authsdk

import (
	"context"
	"net/http"
)

// Bootstrap creates the first admin user. It only works while no users exist
// and the server was started with BOOTSTRAP_TOKEN.
func (c *SDKClient) Bootstrap(
	ctx context.Context,
	token string,
	req BootstrapRequest,
) (*BootstrapResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/bootstrap", req, map[string]string{"X-Bootstrap-Token": token})
	if err != nil {
		return nil, err
	}

	var out BootstrapResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}
