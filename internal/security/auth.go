package security

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds authentication configuration for the serving surface.
type Config struct {
	RequireAuth bool          `yaml:"require_auth"`
	APIKeys     []string      `yaml:"api_keys"`
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTExpiry   time.Duration `yaml:"jwt_expiry"`
}

// UnmarshalYAML accepts jwt_expiry in time.ParseDuration notation ("24h").
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	// Pre-seed with current values so absent keys keep their defaults.
	raw := struct {
		RequireAuth bool     `yaml:"require_auth"`
		APIKeys     []string `yaml:"api_keys"`
		JWTSecret   string   `yaml:"jwt_secret"`
		JWTExpiry   string   `yaml:"jwt_expiry"`
	}{
		RequireAuth: c.RequireAuth,
		APIKeys:     c.APIKeys,
		JWTSecret:   c.JWTSecret,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.RequireAuth = raw.RequireAuth
	c.APIKeys = raw.APIKeys
	c.JWTSecret = raw.JWTSecret
	if raw.JWTExpiry != "" {
		d, err := time.ParseDuration(raw.JWTExpiry)
		if err != nil {
			return fmt.Errorf("jwt_expiry: %w", err)
		}
		c.JWTExpiry = d
	}
	return nil
}

// Claims are the JWT claims issued and accepted by the service.
type Claims struct {
	Subject string `json:"sub_id"`
	jwt.RegisteredClaims
}

// Authenticator validates API keys and JWT bearer tokens.
type Authenticator struct {
	config *Config
	logger *logrus.Logger
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(config *Config, logger *logrus.Logger) *Authenticator {
	if config.JWTExpiry == 0 {
		config.JWTExpiry = 24 * time.Hour
	}
	return &Authenticator{config: config, logger: logger}
}

// Middleware rejects unauthenticated requests when auth is required. Tokens
// arrive as "Authorization: Bearer <token>" or "X-API-Key: <key>".
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.config.RequireAuth {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			http.Error(w, `{"error":{"message":"authentication required","code":401}}`, http.StatusUnauthorized)
			return
		}

		if err := a.Authenticate(token); err != nil {
			a.logger.WithError(err).WithField("remote_addr", r.RemoteAddr).Warn("Authentication failed")
			http.Error(w, `{"error":{"message":"invalid credentials","code":401}}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Authenticate accepts either a configured API key or a valid JWT.
func (a *Authenticator) Authenticate(token string) error {
	if a.validateAPIKey(token) == nil {
		return nil
	}
	if _, err := a.ValidateJWT(token); err == nil {
		return nil
	}
	return errors.New("invalid authentication token")
}

// validateAPIKey uses constant-time comparison against every configured key.
func (a *Authenticator) validateAPIKey(key string) error {
	if key == "" {
		return errors.New("api key is required")
	}
	for _, valid := range a.config.APIKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return nil
		}
	}
	return errors.New("unknown api key")
}

// GenerateJWT issues a signed token for subject.
func (a *Authenticator) GenerateJWT(subject string) (string, error) {
	if a.config.JWTSecret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := &Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.JWTExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.config.JWTSecret))
}

// ValidateJWT parses and verifies a token string.
func (a *Authenticator) ValidateJWT(tokenString string) (*Claims, error) {
	if a.config.JWTSecret == "" {
		return nil, errors.New("jwt secret not configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}
