// Package auth issues and validates kaminari's HS256 access tokens and hashes account
// passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
)

// ErrInvalidToken wraps every validation failure.
var ErrInvalidToken = errors.New("invalid token")

// JWTValidator validates JWT tokens and extracts claims.
type JWTValidator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Claims represents the claims of a validated token.
type Claims struct {
	Subject   string // user id, 24 hex characters
	UserName  string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserName string `json:"username"`
}

// HMACConfig configures HMACService.
type HMACConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	TTL        time.Duration
}

// HMACService signs and validates HS256 tokens with one shared key.
type HMACService struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	logger   logger.Logger
}

// NewHMACService validates cfg and returns the service. TTL defaults to 24 hours.
func NewHMACService(cfg HMACConfig, log logger.Logger) (*HMACService, error) {
	if len(cfg.SigningKey) < 32 {
		return nil, errors.New("auth: signing key must be at least 32 bytes")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("auth: issuer and audience are required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &HMACService{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
		logger:   log,
	}, nil
}

// Issue signs a token for userID. It returns the token and its expiry.
func (s *HMACService) Issue(userID, userName string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserName: userName,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: failed to sign token: %w", err)
	}
	return signed, expires.UTC(), nil
}

// Validate checks signature, algorithm, issuer, audience and expiry.
func (s *HMACService) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	parsed := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.logger.WithContext(ctx).Debug("token rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || parsed.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	claims := &Claims{
		Subject:  parsed.Subject,
		UserName: parsed.UserName,
		Issuer:   parsed.Issuer,
		Audience: slices.Clone([]string(parsed.Audience)),
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	return claims, nil
}

type claimsContextKey struct{}

// WithClaims stores claims in the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// GetClaims retrieves claims from the context. It returns nil when none are stored.
func GetClaims(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsContextKey{}).(*Claims); ok {
		return claims
	}
	return nil
}
