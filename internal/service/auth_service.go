package service

import (
	"errors"
	"fmt"

	"github.com/ctkuo2438/NUboard/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingIdentity is returned for a valid token that carries no user identity.
var ErrMissingIdentity = errors.New("token carries no user identity")

// Claims are the bearer token claims issued by the identity service.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// AuthService verifies bearer tokens. Tokens are issued elsewhere.
type AuthService struct {
	secret []byte
	issuer string
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{secret: []byte(cfg.JWTSecret), issuer: cfg.JWTIssuer}
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID <= 0 || claims.Username == "" {
		return nil, ErrMissingIdentity
	}
	return claims, nil
}
