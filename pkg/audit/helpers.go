package audit

import (
	"net/http"
	"strings"

	"github.com/pcshop/configurator/pkg/authz"
)

// classify returns the resource, resource id and action of a request that
// should be audited. ok is false for reads, probes and unknown paths.
func classify(method, path string) (resource, resourceID, action string, ok bool) {
	mapping := authz.MapRequest(method, path)
	switch mapping.Verb {
	case authz.VerbCreate, authz.VerbUpdate, authz.VerbDelete:
	default:
		return "", "", "", false
	}

	segments := apiSegments(path)
	if segments[0] == "catalog" {
		segments = segments[1:]
	}
	if len(segments) > 1 {
		resourceID, _, _ = strings.Cut(segments[1], ":")
	}
	return mapping.Resource, resourceID, actionVerb(method, segments), true
}

// apiSegments splits a path below /api/v1/.
func apiSegments(path string) []string {
	path = strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/")
	return strings.Split(path, "/")
}

// actionVerb names the action from the path shape, falling back to the
// HTTP method. segments start at the resource collection.
func actionVerb(method string, segments []string) string {
	last := segments[len(segments)-1]
	if _, suffix, found := strings.Cut(last, ":"); found {
		return suffix
	}

	if len(segments) >= 3 {
		switch segments[2] {
		case "components":
			return map[string]string{
				http.MethodPost:   "add-component",
				http.MethodPut:    "replace-component",
				http.MethodDelete: "remove-component",
			}[method]
		case "items":
			if method == http.MethodDelete {
				return "release"
			}
			return "reserve"
		case "builds":
			return "reserve-build"
		case "options":
			return "add-option"
		}
	}

	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut:
		return "update"
	case http.MethodPatch:
		return "patch"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// outcomeFromStatus maps HTTP status codes to audit outcomes.
func outcomeFromStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return OutcomeSuccess
	case code == http.StatusForbidden, code == http.StatusUnauthorized:
		return OutcomeDenied
	default:
		return OutcomeFailure
	}
}
