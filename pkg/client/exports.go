package client

import (
	"git.sr.ht/~jakintosh/ssobridge/internal/api"
	"git.sr.ht/~jakintosh/ssobridge/internal/service"
)

// SSOConfig is the public single sign-on configuration served by the bridge.
type SSOConfig = service.SSOConfig

// RenewResponse is the body of a successful session renewal.
type RenewResponse = api.RenewResponse
