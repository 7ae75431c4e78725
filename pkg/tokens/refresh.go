package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshTokenClaims sits between the JSON representation in the token and the
// [RefreshToken] Go struct. The jti identifies the session the token backs.
type RefreshTokenClaims struct {
	Type     string `json:"typ"`
	DeviceID string `json:"did"`
	jwt.RegisteredClaims
}

// ==============================================

// RefreshToken is the long-lived credential bound to one identity on one
// device. It is stored server side and delivered only as an HTTP-only cookie.
type RefreshToken struct {
	id         string
	issuer     string
	issuedAt   time.Time
	expiration time.Time
	subject    string
	deviceID   string
	encoded    string
}

func (t *RefreshToken) ID() string            { return t.id }
func (t *RefreshToken) Issuer() string        { return t.issuer }
func (t *RefreshToken) IssuedAt() time.Time   { return t.issuedAt }
func (t *RefreshToken) Expiration() time.Time { return t.expiration }
func (t *RefreshToken) Subject() string       { return t.subject }
func (t *RefreshToken) DeviceID() string      { return t.deviceID }
func (t *RefreshToken) Encoded() string       { return t.encoded }

func (token *RefreshToken) Decode(encToken string, validator Validator) error {
	claims := &RefreshTokenClaims{}
	if err := validator.Validate(encToken, claims); err != nil {
		return err
	}
	if claims.Type != typeRefresh {
		return fmt.Errorf("%w: expected %s, got %q", errTokenWrongType, typeRefresh, claims.Type)
	}
	token.fromClaims(claims, encToken)
	return nil
}

func (token *RefreshToken) intoClaims() *RefreshTokenClaims {
	return &RefreshTokenClaims{
		Type:     typeRefresh,
		DeviceID: token.deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.id,
			Issuer:    token.issuer,
			Subject:   token.subject,
			IssuedAt:  jwt.NewNumericDate(token.issuedAt),
			ExpiresAt: jwt.NewNumericDate(token.expiration),
		},
	}
}

func (token *RefreshToken) fromClaims(claims *RefreshTokenClaims, encToken string) {
	token.id = claims.ID
	token.issuer = claims.Issuer
	token.subject = claims.Subject
	token.deviceID = claims.DeviceID
	if claims.IssuedAt != nil {
		token.issuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		token.expiration = claims.ExpiresAt.Time
	}
	token.encoded = encToken
}
