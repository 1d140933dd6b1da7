// Package auth validates the bearer tokens that carry the caller's tenant.
// Tokens are issued elsewhere; this service only signs them for local tooling
// and tests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "ledgercore/internal/core/context"
	"ledgercore/internal/core/id"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "ledgercore",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims represents JWT claims.
// TenantID is the main account; a sub-user also carries ParentUserID.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string   `json:"uid"`
	TenantID     string   `json:"tid"`
	ParentUserID string   `json:"puid,omitempty"`
	Email        string   `json:"email,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// JWTService handles JWT operations.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// GenerateAccessToken signs a token for user acting in tenant.
func (s *JWTService) GenerateAccessToken(user appctx.UserContext) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   user.UserID.String(),
		TenantID: user.TenantID.String(),
		Email:    user.Email,
		Roles:    user.Roles,
	}
	if user.ParentUserID != nil {
		claims.ParentUserID = user.ParentUserID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates JWT and returns user context.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	userID, err := id.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid uid claim: %w", err)
	}
	tenantID, err := id.Parse(claims.TenantID)
	if err != nil || id.IsNil(tenantID) {
		return nil, errors.New("invalid tid claim")
	}

	user := &appctx.UserContext{
		UserID:   userID,
		TenantID: tenantID,
		Email:    claims.Email,
		Roles:    claims.Roles,
	}
	if claims.ParentUserID != "" {
		parent, err := id.Parse(claims.ParentUserID)
		if err != nil {
			return nil, fmt.Errorf("invalid puid claim: %w", err)
		}
		user.ParentUserID = &parent
	}
	return user, nil
}
