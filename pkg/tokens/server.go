package tokens

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Server implements both Issuer and Validator. It holds the private signing
// key for issuing tokens and the matching public key for verification.
// Create a Server instance using InitServer.
type Server struct {
	signingKey *ecdsa.PrivateKey
	verifier
}

//
// Issuer interface

func (server *Server) IssueRefreshToken(
	subject string,
	deviceID string,
	lifetime time.Duration,
) (*RefreshToken, error) {

	now := time.Now()
	token := &RefreshToken{
		id:         uuid.NewString(),
		issuer:     server.issuerDomain,
		issuedAt:   now,
		expiration: now.Add(lifetime),
		subject:    subject,
		deviceID:   deviceID,
	}

	encoded, err := server.sign(token.intoClaims())
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh token: %v", err)
	}
	token.encoded = encoded

	return token, nil
}

func (server *Server) IssueAccessToken(
	refresh *RefreshToken,
	lifetime time.Duration,
) (*AccessToken, error) {

	now := time.Now()
	exp := now.Add(lifetime)
	if exp.After(refresh.Expiration()) {
		exp = refresh.Expiration()
	}
	token := &AccessToken{
		issuer:     server.issuerDomain,
		issuedAt:   now,
		expiration: exp,
		subject:    refresh.Subject(),
		sessionID:  refresh.ID(),
		deviceID:   refresh.DeviceID(),
	}

	encoded, err := server.sign(token.intoClaims())
	if err != nil {
		return nil, fmt.Errorf("failed to encode access token: %v", err)
	}
	token.encoded = encoded

	return token, nil
}

func (server *Server) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(server.signingKey)
}
