// Package tokens issues and validates the local session credentials minted by
// the single sign-on bridge once a control plane token has been verified.
//
// Both credentials are ES256 (ECDSA P-256 with SHA-256) signed JSON Web Tokens:
//
//   - RefreshToken: long-lived, bound to an identity and a device, stored
//     server side and delivered as an HTTP-only cookie
//   - AccessToken: short-lived bearer credential exchanged from a refresh token
//
// # Issuing
//
//	issuer, validator := tokens.InitServer(signingKey, "bridge.example.com")
//
//	refresh, err := issuer.IssueRefreshToken(identityID, deviceID, 30*24*time.Hour)
//	if err != nil {
//	    return err
//	}
//	access, err := issuer.IssueAccessToken(refresh, 30*time.Minute)
//
// An access token never outlives the refresh token it came from.
//
// # Validating
//
//	token := tokens.RefreshToken{}
//	if err := token.Decode(encoded, validator); err != nil {
//	    if errors.Is(err, tokens.ErrTokenExpired()) {
//	        // ask the user to sign in again
//	    }
//	}
//
// Decoding checks the signature algorithm, issuer, expiry and issued-at
// claims, and rejects an access token presented where a refresh token is
// expected (and vice versa).
package tokens
