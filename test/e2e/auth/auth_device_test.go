package auth_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/searchlab/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestDeviceFlow walks the complete device authorization grant:
// 1. Bootstrap the service
// 2. Request a device code
// 3. Poll before approval (authorization_pending)
// 4. Approve with the user code
// 5. Exchange the device code exactly once
func TestDeviceFlow(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	adminUserID := bootstrapService(t, client)
	t.Logf("Admin User ID: %s", adminUserID)

	// Request a device code
	dc, err := client.RequestDeviceCode(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, dc.DeviceCode)
	require.Regexp(t, `^[A-Z0-9]{4}-[A-Z0-9]{4}$`, dc.UserCode)
	require.Equal(t, "http://auth.test/device", dc.VerificationURI)
	require.Positive(t, dc.ExpiresIn)
	require.Positive(t, dc.Interval)

	t.Logf("User Code: %s", dc.UserCode)

	// Poll before approval
	_, err = client.PollDeviceToken(t.Context(), dc.DeviceCode)
	require.True(t, authsdk.HasErrorCode(err, authsdk.ErrorCodeAuthorizationPending), "got: %v", err)

	status, err := client.DeviceStatus(t.Context(), dc.UserCode)
	require.NoError(t, err)
	require.Equal(t, authsdk.DeviceStatusPending, status.Status)

	// Approve, user codes are case-insensitive
	err = client.AuthorizeDevice(t.Context(), authsdk.DeviceAuthorizeRequest{
		UserCode: strings.ToLower(dc.UserCode),
		Username: adminUsername,
		Password: adminPassword,
	})
	require.NoError(t, err)

	status, err = client.DeviceStatus(t.Context(), dc.UserCode)
	require.NoError(t, err)
	require.Equal(t, authsdk.DeviceStatusAuthorized, status.Status)

	// A second approval is refused
	err = client.AuthorizeDevice(t.Context(), authsdk.DeviceAuthorizeRequest{
		UserCode: dc.UserCode,
		Username: adminUsername,
		Password: adminPassword,
	})
	assertStatus(t, err, 409, "Second approval")

	// Exchange once
	tok, err := client.PollDeviceToken(t.Context(), dc.DeviceCode)
	require.NoError(t, err)
	assertTokenResponse(t, tok)

	_, err = client.PollDeviceToken(t.Context(), dc.DeviceCode)
	require.True(t, authsdk.HasErrorCode(err, authsdk.ErrorCodeExpiredToken), "got: %v", err)

	t.Logf("Device flow complete, scope: %s", tok.Scope)
}

// TestDeviceCodeGrantViaTokenEndpoint exchanges an approved device code
// through the generic OAuth2 token endpoint.
func TestDeviceCodeGrantViaTokenEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	bootstrapService(t, client)

	dc, err := client.RequestDeviceCode(t.Context())
	require.NoError(t, err)

	require.NoError(t, client.AuthorizeDevice(t.Context(), authsdk.DeviceAuthorizeRequest{
		UserCode: dc.UserCode,
		Username: adminUsername,
		Password: adminPassword,
	}))

	tok, err := client.DeviceCodeGrant(t.Context(), dc.DeviceCode)
	require.NoError(t, err)
	assertTokenResponse(t, tok)

	t.Logf("Device code grant successful")
}

// TestDeviceApprovalRejectsBadCredentials checks that a wrong password, an
// unknown user and an unknown code are indistinguishable to the caller.
func TestDeviceApprovalRejectsBadCredentials(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	bootstrapService(t, client)

	dc, err := client.RequestDeviceCode(t.Context())
	require.NoError(t, err)

	cases := []authsdk.DeviceAuthorizeRequest{
		{UserCode: dc.UserCode, Username: adminUsername, Password: "WrongPass1!"},
		{UserCode: dc.UserCode, Username: "nobody", Password: adminPassword},
		{UserCode: "ZZZZ-ZZZZ", Username: adminUsername, Password: adminPassword},
	}

	var first *authsdk.OAuth2Error
	for i, req := range cases {
		err := client.AuthorizeDevice(t.Context(), req)
		assertStatus(t, err, 401, "Bad approval")
		require.True(t, authsdk.HasErrorCode(err, authsdk.ErrorCodeAccessDenied))

		oe := err.(*authsdk.OAuth2Error)
		if i == 0 {
			first = oe
			continue
		}
		require.Equal(t, first.Description, oe.Description, "Failures must not reveal which input was wrong")
	}

	// The request is still pending and can be approved afterwards
	_, err = client.PollDeviceToken(t.Context(), dc.DeviceCode)
	require.True(t, authsdk.HasErrorCode(err, authsdk.ErrorCodeAuthorizationPending), "got: %v", err)

	t.Logf("Bad approvals rejected uniformly")
}

// TestAgentLogin drives the agent's blocking login against the service.
func TestAgentLogin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t, map[string]string{
		"AUTH_DEVICE_POLL_INTERVAL": "1s",
	})
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	bootstrapService(t, client)

	agent := authsdk.NewAgent(client, &authsdk.MemoryTokenStore{})

	// Non-blocking first: the agent reports what the user must do
	_, err := agent.EnsureToken(t.Context(), true)
	var authErr *authsdk.AuthRequiredError
	require.ErrorAs(t, err, &authErr)
	require.NotEmpty(t, authErr.UserCode)

	t.Logf("Approve at %s with code %s", authErr.VerificationURI, authErr.UserCode)

	require.NoError(t, client.AuthorizeDevice(t.Context(), authsdk.DeviceAuthorizeRequest{
		UserCode: authErr.UserCode,
		Username: adminUsername,
		Password: adminPassword,
	}))

	// Blocking call picks up the same pending request
	token, err := agent.EnsureToken(t.Context(), false)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	info, err := agent.UserInfo(t.Context())
	require.NoError(t, err)
	require.Equal(t, adminUsername, info.Username)

	t.Logf("Agent logged in as %s", info.Username)
}
