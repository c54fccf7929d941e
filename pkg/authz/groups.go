package authz

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
)

// GroupAuthorizer allows reads to everyone, lets identified users manage
// their own builds and carts, and reserves every other mutation for
// members of the admin groups.
type GroupAuthorizer struct {
	admins mapset.Set[string]
}

// NewGroupAuthorizer creates a GroupAuthorizer.
func NewGroupAuthorizer(adminGroups []string) *GroupAuthorizer {
	return &GroupAuthorizer{admins: mapset.NewSet(adminGroups...)}
}

// Authorize implements Authorizer.
func (g *GroupAuthorizer) Authorize(_ context.Context, req AuthzRequest) (bool, error) {
	for _, group := range req.Groups {
		if g.admins.Contains(group) {
			return true, nil
		}
	}
	switch req.Resource {
	case ResourceBuilds, ResourceCarts:
		return req.User != "" && req.User != Anonymous, nil
	case ResourceAudit, ResourceJobs:
		return false, nil
	}
	return req.Verb == VerbGet || req.Verb == VerbList, nil
}
