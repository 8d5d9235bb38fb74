package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// RequestDeviceCode starts a device authorization request.
func (c *SDKClient) RequestDeviceCode(ctx context.Context) (*DeviceCodeResponse, error) {
	resp, err := c.postForm(ctx, "/v1/device/code", url.Values{}, nil)
	if err != nil {
		return nil, err
	}

	var out DeviceCodeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthorizeDevice approves a pending request with the user's credentials.
// Wrong code, unknown user and wrong password all come back as access_denied.
func (c *SDKClient) AuthorizeDevice(ctx context.Context, req DeviceAuthorizeRequest) error {
	resp, err := c.postJSON(ctx, "/v1/device/authorize", req, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// DeviceStatus reports whether a user code is pending, authorized or gone.
func (c *SDKClient) DeviceStatus(ctx context.Context, userCode string) (*DeviceStatusResponse, error) {
	path := "/v1/device/status?" + url.Values{"user_code": {userCode}}.Encode()
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var out DeviceStatusResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// PollDeviceToken makes one poll for the token pair. While the user has not
// approved, it returns an OAuth2Error with code authorization_pending; once
// the code has expired or was already exchanged, expired_token.
func (c *SDKClient) PollDeviceToken(ctx context.Context, deviceCode string) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, "/v1/device/token", url.Values{"device_code": {deviceCode}}, nil)
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
