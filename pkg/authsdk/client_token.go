package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// GrantTypeDeviceCode is the RFC 8628 grant type URN.
const GrantTypeDeviceCode = "urn:ietf:params:oauth:grant-type:device_code"

// RefreshGrant exchanges a refresh token for a new pair. The presented token
// is consumed either way; on invalid_grant it must be discarded.
func (c *SDKClient) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.requestToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// DeviceCodeGrant polls through the standard token endpoint. It behaves the
// same as PollDeviceToken.
func (c *SDKClient) DeviceCodeGrant(ctx context.Context, deviceCode string) (*TokenResponse, error) {
	return c.requestToken(ctx, url.Values{
		"grant_type":  {GrantTypeDeviceCode},
		"device_code": {deviceCode},
	})
}

// RevokeToken revokes a refresh token, or every session of the subject when
// given an access token. Unknown tokens still succeed.
func (c *SDKClient) RevokeToken(ctx context.Context, token string) error {
	resp, err := c.postForm(ctx, "/v1/oauth2/revoke", url.Values{"token": {token}}, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

func (c *SDKClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, "/v1/oauth2/token", data, nil)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}
