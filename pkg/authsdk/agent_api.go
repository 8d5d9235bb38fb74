package authsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// doAuthRequest performs a request with the agent's access token. It never
// blocks on a human: without a usable token it returns *AuthRequiredError.
func (a *Agent) doAuthRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	token, err := a.EnsureToken(ctx, true)
	if err != nil {
		return nil, err
	}

	req, err := a.client.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := a.client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// UserInfo returns the authenticated user. Requires docs:read.
func (a *Agent) UserInfo(ctx context.Context) (*UserInfoResponse, error) {
	resp, err := a.doAuthRequest(ctx, http.MethodGet, "/v1/userinfo", nil, nil)
	if err != nil {
		return nil, err
	}

	var out UserInfoResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser provisions a user. Requires admin:write.
func (a *Agent) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}
	resp, err := a.doAuthRequest(ctx, http.MethodPost, "/v1/admin/users", body,
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeactivateUser disables a user and revokes all of their refresh tokens.
// Requires admin:write.
func (a *Agent) DeactivateUser(ctx context.Context, userID string) (*DeactivateUserResponse, error) {
	resp, err := a.doAuthRequest(ctx, http.MethodPost, "/v1/admin/users/"+url.PathEscape(userID)+"/deactivate", nil, nil)
	if err != nil {
		return nil, err
	}

	var out DeactivateUserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuditEventFilter narrows ListAuditEvents. Zero values mean no filter.
type AuditEventFilter struct {
	UserID    string
	EventType string
	Status    string
	Page      int
	Size      int
}

// ListAuditEvents pages through audit events. Requires admin:read.
func (a *Agent) ListAuditEvents(ctx context.Context, f AuditEventFilter) (*ListAuditEventsResponse, error) {
	q := url.Values{}
	if f.UserID != "" {
		q.Set("user_id", f.UserID)
	}
	if f.EventType != "" {
		q.Set("event_type", f.EventType)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Size > 0 {
		q.Set("size", strconv.Itoa(f.Size))
	}

	path := "/v1/admin/audit/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := a.doAuthRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var out ListAuditEventsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuditStats returns event counts for the last 24 hours. Requires admin:read.
func (a *Agent) AuditStats(ctx context.Context) (*AuditStatsResponse, error) {
	resp, err := a.doAuthRequest(ctx, http.MethodGet, "/v1/admin/audit/stats", nil, nil)
	if err != nil {
		return nil, err
	}

	var out AuditStatsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
