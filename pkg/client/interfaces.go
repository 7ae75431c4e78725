package client

import (
	"context"

	"git.sr.ht/~jakintosh/ssobridge/pkg/idle"
)

// Session is what an application needs from the bridge client. Consuming
// code should depend on this interface rather than *Client so it can be
// tested with a fake.
type Session interface {
	idle.Credentials
	idle.Renewer
	AccessToken() string
	LoginURL(ctx context.Context) (string, error)
	SignOut(ctx context.Context, ssoToken string, next string) error
}

// ConfigSource discovers the control plane login.
type ConfigSource interface {
	FetchConfig(ctx context.Context) (*SSOConfig, error)
}

// Compile-time checks that *Client can drive the idle monitor.
var _ Session = (*Client)(nil)
var _ ConfigSource = (*Client)(nil)
var _ idle.Credentials = (*Client)(nil)
var _ idle.Renewer = (*Client)(nil)
