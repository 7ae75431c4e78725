package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims represents the JWT claims for an access token. The sid
// claim ties it to the refresh token it was exchanged from.
type AccessTokenClaims struct {
	Type      string `json:"typ"`
	SessionID string `json:"sid"`
	DeviceID  string `json:"did"`
	jwt.RegisteredClaims
}

// ==============================================

// AccessToken is the short-lived bearer credential handed to the browser once
// through the bootstrap page and then held in client-side storage.
type AccessToken struct {
	issuer     string
	issuedAt   time.Time
	expiration time.Time
	subject    string
	sessionID  string
	deviceID   string
	encoded    string
}

func (t *AccessToken) Issuer() string        { return t.issuer }
func (t *AccessToken) IssuedAt() time.Time   { return t.issuedAt }
func (t *AccessToken) Expiration() time.Time { return t.expiration }
func (t *AccessToken) Subject() string       { return t.subject }
func (t *AccessToken) SessionID() string     { return t.sessionID }
func (t *AccessToken) DeviceID() string      { return t.deviceID }
func (t *AccessToken) Encoded() string       { return t.encoded }

func (token *AccessToken) Decode(encToken string, validator Validator) error {
	claims := &AccessTokenClaims{}
	if err := validator.Validate(encToken, claims); err != nil {
		return err
	}
	if claims.Type != typeAccess {
		return fmt.Errorf("%w: expected %s, got %q", errTokenWrongType, typeAccess, claims.Type)
	}
	token.fromClaims(claims, encToken)
	return nil
}

func (token *AccessToken) intoClaims() *AccessTokenClaims {
	return &AccessTokenClaims{
		Type:      typeAccess,
		SessionID: token.sessionID,
		DeviceID:  token.deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    token.issuer,
			Subject:   token.subject,
			IssuedAt:  jwt.NewNumericDate(token.issuedAt),
			ExpiresAt: jwt.NewNumericDate(token.expiration),
		},
	}
}

func (token *AccessToken) fromClaims(claims *AccessTokenClaims, encToken string) {
	token.issuer = claims.Issuer
	token.subject = claims.Subject
	token.sessionID = claims.SessionID
	token.deviceID = claims.DeviceID
	if claims.IssuedAt != nil {
		token.issuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		token.expiration = claims.ExpiresAt.Time
	}
	token.encoded = encToken
}
