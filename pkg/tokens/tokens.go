package tokens

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errTokenMalformed     = errors.New("token malformed")
	errTokenBadSignature  = errors.New("token bad signature")
	errTokenInvalidIssuer = errors.New("token invalid issuer")
	errTokenExpired       = errors.New("token expired")
	errTokenNotIssued     = errors.New("token not issued yet")
	errTokenWrongType     = errors.New("token wrong type")
)

func ErrTokenMalformed() error     { return errTokenMalformed }
func ErrTokenBadSignature() error  { return errTokenBadSignature }
func ErrTokenInvalidIssuer() error { return errTokenInvalidIssuer }
func ErrTokenExpired() error       { return errTokenExpired }
func ErrTokenNotIssued() error     { return errTokenNotIssued }
func ErrTokenWrongType() error     { return errTokenWrongType }

const (
	typeRefresh = "refresh"
	typeAccess  = "access"
)

type Issuer interface {
	IssueRefreshToken(subject string, deviceID string, lifetime time.Duration) (*RefreshToken, error)
	IssueAccessToken(refresh *RefreshToken, lifetime time.Duration) (*AccessToken, error)
}

type Validator interface {
	Validate(encoded string, claims jwt.Claims) error
}

// InitServer builds the issuer and validator pair used by the bridge itself.
func InitServer(
	signingKey *ecdsa.PrivateKey,
	issuerDomain string,
) (
	Issuer,
	Validator,
) {
	server := &Server{
		signingKey: signingKey,
		verifier: verifier{
			verificationKey: &signingKey.PublicKey,
			issuerDomain:    issuerDomain,
		},
	}
	return server, server
}

// InitValidator builds a validator that only holds the public key.
func InitValidator(
	verificationKey *ecdsa.PublicKey,
	issuerDomain string,
) Validator {
	return &verifier{
		verificationKey: verificationKey,
		issuerDomain:    issuerDomain,
	}
}

type verifier struct {
	verificationKey *ecdsa.PublicKey
	issuerDomain    string
}

func (v *verifier) Validate(encoded string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(
		encoded,
		claims,
		func(*jwt.Token) (any, error) { return v.verificationKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(v.issuerDomain),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	return classify(err)
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", errTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w: %v", errTokenNotIssued, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", errTokenInvalidIssuer, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", errTokenBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", errTokenMalformed, err)
	}
}
