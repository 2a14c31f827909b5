// Package authclient is the consumer-side client for the gatewarden
// authentication service.
//
// A Client owns the credential lifecycle: Login (optionally followed by
// CompleteMFA), guarded request dispatch via Do, transparent refresh on
// expiry, and Logout. All refresh traffic is funnelled through a
// single-flight Coordinator so that any number of concurrent requests
// observing an expired access token produce exactly one refresh call, and
// each request is retried at most once.
//
// Basic usage:
//
//	client := authclient.New(authclient.Config{BaseURL: "https://auth.example.com"})
//
//	result, err := client.Login(ctx, "alice", "s3cret")
//	if err != nil {
//		return err
//	}
//	if result.MFARequired {
//		if _, err := client.CompleteMFA(ctx, "totp", code); err != nil {
//			return err
//		}
//	}
//
//	resp, err := client.Do(ctx, &authclient.RequestDescriptor{
//		Request: authclient.Request{Method: "GET", Path: "/v1/things"},
//	})
//
// Failures carry a stable code on *AuthError; subscribe to lifecycle events
// with OnAuthStateChanged, OnTokenRefreshed, OnLogout and OnError.
package authclient
