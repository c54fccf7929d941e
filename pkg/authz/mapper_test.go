package authz

import (
	"net/http"
	"testing"
)

func TestMapRequest(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		wantResource string
		wantVerb     string
	}{
		{"list attributes", http.MethodGet, "/api/v1/catalog/attributes", ResourceCatalog, VerbList},
		{"get component type", http.MethodGet, "/api/v1/catalog/component-types/3", ResourceCatalog, VerbGet},
		{"add enum option", http.MethodPost, "/api/v1/catalog/attributes/3/options", ResourceCatalog, VerbCreate},
		{"list rules", http.MethodGet, "/api/v1/catalog/rules/", ResourceRules, VerbList},
		{"delete rule", http.MethodDelete, "/api/v1/catalog/rules/9", ResourceRules, VerbDelete},
		{"stateless check", http.MethodPost, "/api/v1/compatibility:check", ResourceCatalog, VerbGet},
		{"submit build", http.MethodPost, "/api/v1/builds", ResourceBuilds, VerbCreate},
		{"get build", http.MethodGet, "/api/v1/builds/abc", ResourceBuilds, VerbGet},
		{"replace component", http.MethodPut, "/api/v1/builds/abc/components/2", ResourceBuilds, VerbUpdate},
		{"reserve cart item", http.MethodPost, "/api/v1/carts/c1/items", ResourceCarts, VerbCreate},
		{"cancel job", http.MethodPost, "/api/v1/jobs/j1:cancel", ResourceJobs, VerbCreate},
		{"list audit events", http.MethodGet, "/api/v1/audit/events", ResourceAudit, VerbGet},
		{"health", http.MethodGet, "/healthz", "", ""},
		{"unknown api", http.MethodGet, "/api/v1/unknown", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapRequest(tt.method, tt.path)
			if got.Resource != tt.wantResource {
				t.Errorf("Resource = %q, want %q", got.Resource, tt.wantResource)
			}
			if got.Verb != tt.wantVerb {
				t.Errorf("Verb = %q, want %q", got.Verb, tt.wantVerb)
			}
		})
	}
}
