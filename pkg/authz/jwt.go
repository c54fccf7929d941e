package authz

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures identity extraction from Bearer tokens.
type JWTConfig struct {
	// UserClaim names the claim holding the user name. Default: "sub".
	UserClaim string

	// GroupsClaim is the claim path holding the user's groups. Supports
	// dot-notation for nested claims (e.g., "realm_access.roles").
	// Default: "groups".
	GroupsClaim string

	// PublicKeyPath is the path to the PEM-encoded RSA public key for RS256
	// verification. If empty, tokens are parsed but NOT verified.
	PublicKeyPath string

	// Issuer is the expected iss claim. If empty, issuer is not validated.
	Issuer string

	// Audience is the expected aud claim. If empty, audience is not validated.
	Audience string
}

// JWTConfigFromEnv reads PCSHOP_JWT_USER_CLAIM, PCSHOP_JWT_GROUPS_CLAIM,
// PCSHOP_JWT_PUBLIC_KEY_PATH, PCSHOP_JWT_ISSUER and PCSHOP_JWT_AUDIENCE.
func JWTConfigFromEnv() JWTConfig {
	return JWTConfig{
		UserClaim:     os.Getenv("PCSHOP_JWT_USER_CLAIM"),
		GroupsClaim:   os.Getenv("PCSHOP_JWT_GROUPS_CLAIM"),
		PublicKeyPath: os.Getenv("PCSHOP_JWT_PUBLIC_KEY_PATH"),
		Issuer:        os.Getenv("PCSHOP_JWT_ISSUER"),
		Audience:      os.Getenv("PCSHOP_JWT_AUDIENCE"),
	}
}

// JWTIdentityMiddleware returns HTTP middleware that reads the Identity from
// an "Authorization: Bearer <token>" header.
//
// Security model:
//   - If PublicKeyPath is set, tokens are cryptographically verified (RS256)
//   - If PublicKeyPath is empty, tokens are parsed without verification (trusted proxy mode)
//   - Missing or invalid tokens leave the caller anonymous
func JWTIdentityMiddleware(cfg JWTConfig, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	if cfg.UserClaim == "" {
		cfg.UserClaim = "sub"
	}
	if cfg.GroupsClaim == "" {
		cfg.GroupsClaim = "groups"
	}
	if logger == nil {
		logger = slog.Default()
	}

	var publicKey *rsa.PublicKey
	if cfg.PublicKeyPath != "" {
		key, err := loadRSAPublicKey(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		publicKey = key
		logger.Info("JWT identity: using RS256 verification", "keyPath", cfg.PublicKeyPath)
	} else {
		logger.Warn("JWT identity: no public key configured, tokens parsed without verification (trusted proxy mode)")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Identity{User: Anonymous}
			if token := extractBearerToken(r); token != "" {
				claims, err := parseJWTClaims(token, publicKey, cfg)
				if err != nil {
					logger.Debug("JWT parse failed, treating caller as anonymous", "error", err)
				} else {
					if user, _ := claimAt(claims, cfg.UserClaim).(string); user != "" {
						id.User = user
					}
					id.Groups = stringsAt(claims, cfg.GroupsClaim)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}, nil
}

func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWT public key from %s: %w", path, err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block from %s", path)
	}
	parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	rsaKey, ok := parsedKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA (got %T)", parsedKey)
	}
	return rsaKey, nil
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// parseJWTClaims parses and optionally verifies a JWT token.
func parseJWTClaims(tokenString string, publicKey *rsa.PublicKey, cfg JWTConfig) (jwt.MapClaims, error) {
	var parserOpts []jwt.ParserOption
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}

	var (
		token *jwt.Token
		err   error
	)
	if publicKey != nil {
		token, err = jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return publicKey, nil
		}, parserOpts...)
	} else {
		token, _, err = jwt.NewParser(parserOpts...).ParseUnverified(tokenString, jwt.MapClaims{})
	}
	if err != nil {
		return nil, fmt.Errorf("JWT parse error: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	return claims, nil
}

// claimAt follows a dot-separated path through nested claims.
func claimAt(claims jwt.MapClaims, path string) any {
	var current any = map[string]any(claims)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// stringsAt reads a claim that is either a string or an array of strings.
func stringsAt(claims jwt.MapClaims, path string) []string {
	switch v := claimAt(claims, path).(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
