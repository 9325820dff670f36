// Package auth issues and verifies the bearer tokens handed out on login.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Every token is bound to this issuer/audience pair.
const (
	Issuer   = "ms-auth-lambda"
	Audience = "pwa-client"
)

// Claims is the signed token payload: the user's email and name plus the
// registered iss/aud/iat/exp claims.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenIssuer signs tokens with a single HMAC secret and a fixed lifetime.
// There is no revocation list; expiry is the only way a token stops being
// valid.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*TokenIssuer)

// WithClock overrides the time source used for iat/exp and for validation.
func WithClock(now func() time.Time) Option {
	return func(i *TokenIssuer) { i.now = now }
}

func NewTokenIssuer(secret []byte, ttl time.Duration, opts ...Option) *TokenIssuer {
	i := &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue returns a signed token for user. The user must already be persisted.
func (i *TokenIssuer) Issue(user *models.User) (string, error) {
	if user == nil || user.ID == 0 {
		return "", common.ErrMissingIdentity
	}

	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})

	return token.SignedString(i.secret)
}

// Verify checks signature, issuer, audience and expiry and returns the
// embedded claims.
func (i *TokenIssuer) Verify(tokenString string) (*models.TokenClaims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, common.ErrTokenInvalid
	}

	return &models.TokenClaims{Email: claims.Email, Name: claims.Name}, nil
}

// IsValid is Verify collapsed to a boolean.
func (i *TokenIssuer) IsValid(tokenString string) bool {
	_, err := i.Verify(tokenString)
	return err == nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return common.NewError(common.KindTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.NewError(common.KindTokenExpired, err)
	default:
		return common.NewError(common.KindTokenInvalid, err)
	}
}
