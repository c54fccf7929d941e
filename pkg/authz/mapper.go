package authz

import (
	"net/http"
	"strings"
)

// ResourceMapping maps an HTTP request to a resource and verb for authorization.
type ResourceMapping struct {
	Resource string
	Verb     string
}

// UnknownMapping is returned when no known pattern matches the request.
var UnknownMapping = ResourceMapping{Resource: "", Verb: ""}

const apiPrefix = "/api/v1/"

// MapRequest maps an HTTP method and URL path under /api/v1 to a ResourceMapping.
func MapRequest(method, path string) ResourceMapping {
	path = strings.TrimRight(path, "/")
	if !strings.HasPrefix(path, apiPrefix) {
		return UnknownMapping
	}
	segments := strings.Split(strings.TrimPrefix(path, apiPrefix), "/")

	// The stateless check reads the catalog and stores nothing.
	if segments[0] == "compatibility:check" {
		return ResourceMapping{Resource: ResourceCatalog, Verb: VerbGet}
	}

	var resource string
	switch segments[0] {
	case "catalog":
		resource = ResourceCatalog
		if len(segments) > 1 && segments[1] == "rules" {
			resource = ResourceRules
		}
		// Drop the "catalog" segment so collection/item detection below
		// looks at the catalog sub-resource.
		segments = segments[1:]
	case "builds":
		resource = ResourceBuilds
	case "carts":
		resource = ResourceCarts
	case "jobs":
		resource = ResourceJobs
	case "audit":
		resource = ResourceAudit
	default:
		return UnknownMapping
	}

	return ResourceMapping{Resource: resource, Verb: verbFor(method, len(segments) <= 1)}
}

func verbFor(method string, collection bool) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		if collection {
			return VerbList
		}
		return VerbGet
	case http.MethodPost:
		return VerbCreate
	case http.MethodPut, http.MethodPatch:
		return VerbUpdate
	case http.MethodDelete:
		return VerbDelete
	}
	return VerbGet
}
