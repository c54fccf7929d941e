// Package authz provides request identity and authorization primitives for
// the configurator server. Identity comes from headers set by the
// authenticating proxy or from a Bearer token; authorization is either
// disabled or group based.
package authz

import "context"

// Resource names for permission checks.
const (
	ResourceCatalog = "catalog"
	ResourceRules   = "rules"
	ResourceBuilds  = "builds"
	ResourceCarts   = "carts"
	ResourceJobs    = "jobs"
	ResourceAudit   = "audit"
)

// Verb names for permission checks.
const (
	VerbGet    = "get"
	VerbList   = "list"
	VerbCreate = "create"
	VerbUpdate = "update"
	VerbDelete = "delete"
)

// AuthzRequest represents an authorization check.
type AuthzRequest struct {
	User     string
	Groups   []string
	Resource string
	Verb     string
}

// Authorizer checks whether a user is authorized to perform an action.
type Authorizer interface {
	Authorize(ctx context.Context, req AuthzRequest) (bool, error)
}
