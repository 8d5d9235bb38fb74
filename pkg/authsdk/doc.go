/*
Package authsdk is the client side of the SearchLab device authorization
service.

# SDKClient

SDKClient wraps the unauthenticated endpoints: starting a device request,
approving it, polling for tokens, refreshing, revoking and health checks.

	client := authsdk.NewSDKClient("https://auth.example.com")
	dc, err := client.RequestDeviceCode(ctx)

# Agent

Agent is what a tool or CLI embeds. It owns the token lifecycle:

 1. Tokens are loaded from a TokenStore on first use.
 2. An access token is reused until 30 seconds before it expires.
 3. An expired access token is replaced through the refresh grant. Refresh
    tokens are single use, so the new pair is persisted immediately.
 4. If the server rejects the refresh token (invalid_grant) every local
    token is discarded and the agent falls back to the device flow.
 5. The device flow reuses the one outstanding request while it is still
    valid, so the human never sees two different codes.

	agent := authsdk.NewAgent(client, &authsdk.FileTokenStore{Path: path})

	token, err := agent.EnsureToken(ctx, true)
	var authErr *authsdk.AuthRequiredError
	if errors.As(err, &authErr) {
		fmt.Println(authErr) // tells the human where to go and which code to type
		return
	}

In blocking mode EnsureToken polls at the server's interval, backs off on
slow_down, and gives up with ErrPollTimeout after the code expires or ten
minutes pass, whichever comes first. Cancel the context to stop earlier.

# Token storage

FileTokenStore writes tokens to a file readable only by the owning user
(directory 0700, file 0600) and replaces it atomically.
*/
package authsdk
