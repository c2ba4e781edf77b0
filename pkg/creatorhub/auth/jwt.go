package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mikepea/creatorhub/pkg/creatorhub/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents the JWT claims
type Claims struct {
	UserID     uint   `json:"user_id"`
	Email      string `json:"email"`
	SystemRole string `json:"system_role"`
	SessionID  string `json:"sid"`
	jwt.RegisteredClaims
}

var (
	mu       sync.RWMutex
	settings = config.JWTConfig{
		Secret: config.DefaultJWTSecret,
		TTL:    24 * time.Hour,
		Issuer: "creatorhub",
	}
)

// Configure replaces the signing secret, token lifetime and issuer.
// Zero fields keep their current value.
func Configure(cfg config.JWTConfig) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Secret != "" {
		settings.Secret = cfg.Secret
	}
	if cfg.TTL > 0 {
		settings.TTL = cfg.TTL
	}
	if cfg.Issuer != "" {
		settings.Issuer = cfg.Issuer
	}
}

func current() config.JWTConfig {
	mu.RLock()
	defer mu.RUnlock()
	return settings
}

// GenerateToken creates a new JWT token for a user. Each token starts a new
// session with its own id.
func GenerateToken(userID uint, email string, systemRole string) (string, error) {
	cfg := current()
	now := time.Now()
	claims := &Claims{
		UserID:     userID,
		Email:      email,
		SystemRole: systemRole,
		SessionID:  uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    cfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	secret := []byte(current().Secret)
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
