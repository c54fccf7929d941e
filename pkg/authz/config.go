package authz

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// AuthzMode selects the authorization backend.
type AuthzMode string

const (
	// AuthzModeNone disables authorization checks (development).
	AuthzModeNone AuthzMode = "none"
	// AuthzModeGroups restricts catalog administration to admin groups.
	AuthzModeGroups AuthzMode = "groups"
)

// IdentitySource selects where the caller identity is read from.
type IdentitySource string

const (
	// IdentityHeader trusts X-Remote-User and X-Remote-Group.
	IdentityHeader IdentitySource = "header"
	// IdentityJWT reads a Bearer token.
	IdentityJWT IdentitySource = "jwt"
)

// Config holds authorization settings.
type Config struct {
	Mode        AuthzMode
	AdminGroups []string
	Identity    IdentitySource
	JWT         JWTConfig
}

// DefaultConfig returns authorization disabled, header identity and
// "pcshop-admins" as the admin group.
func DefaultConfig() Config {
	return Config{Mode: AuthzModeNone, AdminGroups: []string{"pcshop-admins"}, Identity: IdentityHeader}
}

// ConfigFromEnv reads PCSHOP_AUTHZ_MODE, PCSHOP_AUTHZ_ADMIN_GROUPS
// (comma-separated), PCSHOP_IDENTITY_SOURCE and the PCSHOP_JWT_* variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("PCSHOP_IDENTITY_SOURCE"); v != "" {
		cfg.Identity = IdentitySource(strings.ToLower(v))
	}
	cfg.JWT = JWTConfigFromEnv()
	if v := os.Getenv("PCSHOP_AUTHZ_MODE"); v != "" {
		cfg.Mode = AuthzMode(strings.ToLower(v))
	}
	if v := os.Getenv("PCSHOP_AUTHZ_ADMIN_GROUPS"); v != "" {
		var groups []string
		for _, g := range strings.Split(v, ",") {
			if g = strings.TrimSpace(g); g != "" {
				groups = append(groups, g)
			}
		}
		cfg.AdminGroups = groups
	}
	return cfg
}

// NewAuthorizer returns the authorizer for cfg.Mode. Unknown modes fall
// back to the group authorizer so a typo never disables checks.
func NewAuthorizer(cfg Config) Authorizer {
	if cfg.Mode == AuthzModeNone {
		return &NoopAuthorizer{}
	}
	return NewGroupAuthorizer(cfg.AdminGroups)
}

// NewIdentityMiddleware returns the identity middleware for cfg.Identity.
func NewIdentityMiddleware(cfg Config, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	switch cfg.Identity {
	case IdentityHeader, "":
		return IdentityMiddleware(), nil
	case IdentityJWT:
		return JWTIdentityMiddleware(cfg.JWT, logger)
	}
	return nil, fmt.Errorf("unknown identity source %q (expected header or jwt)", cfg.Identity)
}
