package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/chirper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPayload is what a signed token asserts about its bearer.
type TokenPayload struct {
	Subject string
}

// IssuerConfig holds the secrets and lifetimes of both token kinds.
//
// IgnoreAccessExpiry makes VerifyAccess accept access tokens past their
// expiry. Refresh tokens are always checked.
type IssuerConfig struct {
	AccessSecret       []byte
	AccessTTL          time.Duration
	RefreshSecret      []byte
	RefreshTTL         time.Duration
	IgnoreAccessExpiry bool
}

// TokenIssuer mints and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	cfg IssuerConfig
	now func() time.Time
}

func NewTokenIssuer(cfg IssuerConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, now: time.Now}
}

func (i *TokenIssuer) IssueAccess(p TokenPayload) (string, error) {
	return i.issue(p, i.cfg.AccessSecret, i.cfg.AccessTTL)
}

func (i *TokenIssuer) IssueRefresh(p TokenPayload) (string, error) {
	return i.issue(p, i.cfg.RefreshSecret, i.cfg.RefreshTTL)
}

func (i *TokenIssuer) VerifyAccess(token string) (TokenPayload, error) {
	return i.verify(token, i.cfg.AccessSecret, i.cfg.IgnoreAccessExpiry)
}

func (i *TokenIssuer) VerifyRefresh(token string) (TokenPayload, error) {
	return i.verify(token, i.cfg.RefreshSecret, false)
}

// ExpiryOf reads the exp claim without checking the signature. Only use it
// on tokens this issuer has just minted.
func (i *TokenIssuer) ExpiryOf(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, common.ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, common.ErrInvalidToken
	}
	return claims.ExpiresAt.Time, nil
}

func (i *TokenIssuer) issue(p TokenPayload, secret []byte, ttl time.Duration) (string, error) {
	now := i.now()
	// jti keeps two tokens minted in the same second for the same user distinct
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   p.Subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (i *TokenIssuer) verify(tokenString string, secret []byte, ignoreExpiry bool) (TokenPayload, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if ignoreExpiry {
		opts = []jwt.ParserOption{
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		}
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenPayload{}, common.ErrTokenExpired
		}
		return TokenPayload{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return TokenPayload{}, common.ErrInvalidToken
	}

	return TokenPayload{Subject: claims.Subject}, nil
}
