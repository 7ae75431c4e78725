// Package client is a Go client for an SSO bridge admin instance.
//
// It plays the part of the browser: it presents control plane tokens to the
// callback, keeps the refresh cookie in a cookie jar, and holds the access
// credential and control plane location in a Storage the way the admin UI
// keeps them in localStorage.
//
// # Quick Start
//
//	c, err := client.New("https://admin.example.com", client.Options{})
//	if err != nil {
//	    return err
//	}
//
//	// where should an unauthenticated user go?
//	loginURL, err := c.LoginURL(ctx)
//
//	// the control plane sent the user back with a token
//	if err := c.Login(ctx, ssoToken, ""); err != nil {
//	    return err
//	}
//	fmt.Println(c.AccessToken())
//
// # Idle Timeout
//
// *Client implements idle.Credentials and idle.Renewer, so it can drive an
// idle.Monitor directly:
//
//	tasks := idle.NewScheduler(clockwork.NewRealClock())
//	monitor := idle.NewMonitor(tasks, idle.DefaultConfig(), c, c, presenter, log)
//	monitor.Start()
//
// When the monitor expires the session it clears the access credential;
// an idle.Watcher polling the same client notices and can send the user to
// LoginURL.
//
// # Sign Out
//
// SignOut visits the bridge's sign-out hop and always clears every known
// storage key, even when the request fails:
//
//	err := c.SignOut(ctx, "", "https://cp.example.com/signed-out")
//
// # Errors
//
//	switch {
//	case errors.Is(err, client.ErrNotConfigured):
//	    // the bridge has no control plane configured
//	case errors.Is(err, client.ErrRejected):
//	    // the control plane token failed verification
//	case errors.Is(err, client.ErrUnauthorized):
//	    // the refresh cookie is gone or revoked; log in again
//	case errors.Is(err, client.ErrRequest):
//	    // network failure
//	}
package client
