// Package auth resolves access tokens issued by the account service.
package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dkeye/Lounge/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const accessTokenType = "access"

var ErrInvalidToken = errors.New("invalid token")

// Claims of an access token. UserID is the persisted user primary key.
type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTAuthorizer verifies HS256 access tokens.
type JWTAuthorizer struct {
	secret []byte
}

func NewJWTAuthorizer(secret string) *JWTAuthorizer {
	return &JWTAuthorizer{secret: []byte(secret)}
}

// ResolveUserID implements core.Authorizer.
func (a *JWTAuthorizer) ResolveUserID(_ context.Context, credential string) (domain.UserID, bool) {
	claims, err := a.Validate(credential)
	if err != nil {
		log.Debug().Str("module", "adapters.auth").Err(err).Msg("credential rejected")
		return 0, false
	}
	return domain.UserID(claims.UserID), true
}

func (a *JWTAuthorizer) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.TokenType != accessTokenType || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateAccessToken signs a token the way the account service does. Used by
// tests and local tooling.
func (a *JWTAuthorizer) GenerateAccessToken(uid domain.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    int64(uid),
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(int64(uid), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
