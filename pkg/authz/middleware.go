package authz

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// RequirePermission returns middleware that enforces a specific resource/verb
// permission check against the identity set by IdentityMiddleware.
func RequirePermission(authorizer Authorizer, resource, verb string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !check(w, r, authorizer, resource, verb) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthzMiddleware returns middleware that auto-maps the HTTP method and URL path
// to a (resource, verb) pair and performs the authorization check. Paths the
// mapper does not know are passed through (health probes, static routes).
func AuthzMiddleware(authorizer Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mapping := MapRequest(r.Method, r.URL.Path)
			if mapping == UnknownMapping {
				next.ServeHTTP(w, r)
				return
			}
			if !check(w, r, authorizer, mapping.Resource, mapping.Verb) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func check(w http.ResponseWriter, r *http.Request, authorizer Authorizer, resource, verb string) bool {
	id, _ := IdentityFromContext(r.Context())
	allowed, err := authorizer.Authorize(r.Context(), AuthzRequest{
		User:     id.User,
		Groups:   id.Groups,
		Resource: resource,
		Verb:     verb,
	})
	if err != nil {
		writeDenied(w, http.StatusInternalServerError, "internal_error", "authorization check failed")
		return false
	}
	if !allowed {
		writeDenied(w, http.StatusForbidden, "forbidden", fmt.Sprintf("insufficient permissions for %s/%s", resource, verb))
		return false
	}
	return true
}

func writeDenied(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
