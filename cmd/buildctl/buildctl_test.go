package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command against srv and returns what it printed.
func execute(t *testing.T, srvURL string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	prev := out
	out = &buf
	t.Cleanup(func() { out = prev })

	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--server", srvURL, "-o", "table"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// --- truncate tests ---

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a long string", 10, "this is..."},
		{"abcd", 3, "abc"},
		{"", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			got := truncate(tt.s, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
			}
		})
	}
}

// --- describeRule tests ---

func TestDescribeRule(t *testing.T) {
	n := newNamer(
		[]componentType{{ID: 1, Slug: "cpu"}, {ID: 2, Slug: "motherboard"}},
		[]attribute{{ID: 7, Name: "socket"}},
	)

	tests := []struct {
		name string
		rule rule
		want string
	}{
		{
			name: "required",
			rule: rule{SourceTypeID: 1, SourceAttributeID: 7, TargetTypeID: 2, TargetAttributeID: 7, RuleType: "required"},
			want: "cpu.socket requires motherboard.socket",
		},
		{
			name: "incompatible with values",
			rule: rule{SourceTypeID: 2, SourceAttributeID: 7, TargetTypeID: 1, TargetAttributeID: 7,
				RuleType: "incompatible", SourceValue: "AM5", TargetValue: "AM4"},
			want: `motherboard.socket incompatible cpu.socket when "AM5" then "AM4"`,
		},
		{
			name: "unknown ids",
			rule: rule{SourceTypeID: 9, SourceAttributeID: 8, TargetTypeID: 1, TargetAttributeID: 7, RuleType: "required"},
			want: "type#9.attr#8 requires cpu.socket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeRule(n, tt.rule); got != tt.want {
				t.Errorf("describeRule = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- readBuildFile tests ---

func TestReadBuildFile(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		path := writeFile(t, "build.json", `{"name":"rig","components":[{"component_type_id":1,"product_id":12}]}`)
		req, err := readBuildFile(path, nil)
		if err != nil {
			t.Fatalf("readBuildFile: %v", err)
		}
		if req.Name != "rig" || len(req.Components) != 1 || req.Components[0].ProductID != 12 {
			t.Errorf("unexpected request: %+v", req)
		}
	})

	t.Run("yaml from stdin", func(t *testing.T) {
		stdin := strings.NewReader("name: rig\ncomponents:\n  - component_type_id: 2\n    product_id: 5\n")
		req, err := readBuildFile("-", stdin)
		if err != nil {
			t.Fatalf("readBuildFile: %v", err)
		}
		if req.Components[0].ComponentTypeID != 2 {
			t.Errorf("ComponentTypeID = %d, want 2", req.Components[0].ComponentTypeID)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		path := writeFile(t, "build.yaml", "name: rig\nparts: []\n")
		if _, err := readBuildFile(path, nil); err == nil {
			t.Error("expected an error for an unknown field")
		}
	})

	t.Run("no components", func(t *testing.T) {
		path := writeFile(t, "build.yaml", "name: rig\n")
		if _, err := readBuildFile(path, nil); err == nil {
			t.Error("expected an error for a build without components")
		}
	})

	t.Run("empty", func(t *testing.T) {
		path := writeFile(t, "build.yaml", "")
		if _, err := readBuildFile(path, nil); err == nil {
			t.Error("expected an error for an empty file")
		}
	})
}

// --- client tests ---

func TestClientSendsIdentityHeaders(t *testing.T) {
	var gotUser, gotGroups string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-Remote-User")
		gotGroups = r.Header.Get("X-Remote-Group")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client := &configuratorClient{baseURL: srv.URL, user: "alice", groups: "pcshop-admins", http: srv.Client()}
	var result map[string]any
	if err := client.getJSON("/healthz", &result); err != nil {
		t.Fatalf("getJSON failed: %v", err)
	}
	if gotUser != "alice" {
		t.Errorf("X-Remote-User = %q, want %q", gotUser, "alice")
	}
	if gotGroups != "pcshop-admins" {
		t.Errorf("X-Remote-Group = %q, want %q", gotGroups, "pcshop-admins")
	}
}

func TestClientNoIdentityHeadersWhenEmpty(t *testing.T) {
	var hasUser bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasUser = r.Header["X-Remote-User"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &configuratorClient{baseURL: srv.URL, http: srv.Client()}
	if err := client.delete("/api/v1/builds/x"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if hasUser {
		t.Error("X-Remote-User should not be set")
	}
}

func TestClientErrorHandling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "forbidden", "message": "insufficient permissions for jobs/create"})
	}))
	defer srv.Close()

	client := &configuratorClient{baseURL: srv.URL, http: srv.Client()}
	err := client.postJSON("/api/v1/jobs", map[string]string{"kind": "x"}, nil)
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apiError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", apiErr.StatusCode)
	}
	if apiErr.Message != "insufficient permissions for jobs/create" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

// --- command tests ---

func TestCheckCommand(t *testing.T) {
	var gotBody buildRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/compatibility:check" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		valid := len(gotBody.Components) > 1
		var errs []string
		if !valid {
			errs = []string{"Missing required component type: Motherboard"}
		}
		json.NewEncoder(w).Encode(buildResult{
			TotalPrice:    "349.99",
			Compatibility: report{IsValid: valid, Errors: errs},
		})
	}))
	defer srv.Close()

	t.Run("compatible", func(t *testing.T) {
		path := writeFile(t, "ok.yaml", "name: rig\ncomponents:\n  - {component_type_id: 1, product_id: 1}\n  - {component_type_id: 2, product_id: 3}\n")
		output, err := execute(t, srv.URL, "check", "-f", path)
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if !strings.Contains(output, "Compatible: yes") {
			t.Errorf("output missing verdict:\n%s", output)
		}
	})

	t.Run("incompatible exits non-zero", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "name: rig\ncomponents:\n  - {component_type_id: 1, product_id: 1}\n")
		output, err := execute(t, srv.URL, "check", "-f", path)
		if err == nil {
			t.Fatal("expected an error for an incompatible build")
		}
		if !strings.Contains(output, "Missing required component type: Motherboard") {
			t.Errorf("output missing the reason:\n%s", output)
		}
	})
}

func TestTypesCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/catalog/component-types" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(componentTypeList{
			ComponentTypes: []componentType{
				{ID: 1, Slug: "cpu", Name: "Processor", Required: true,
					CompatibilityAttributes: []attribute{{Name: "socket"}, {Name: "tdp"}}},
			},
			Size: 1,
		})
	}))
	defer srv.Close()

	output, err := execute(t, srv.URL, "types")
	if err != nil {
		t.Fatalf("types failed: %v", err)
	}
	for _, want := range []string{"SLUG", "cpu", "Processor", "socket, tdp"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestHealthCommandNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/healthz":
			json.NewEncoder(w).Encode(map[string]string{"status": "alive", "uptime": "5s"})
		case "/readyz":
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
		}
	}))
	defer srv.Close()

	output, err := execute(t, srv.URL, "health")
	if err != nil {
		t.Fatalf("health failed: %v", err)
	}
	if !strings.Contains(output, "not_ready") {
		t.Errorf("output missing readiness:\n%s", output)
	}
}

func TestSeedValidateCommand(t *testing.T) {
	output, err := execute(t, "http://unused", "seed", "validate", "-f", "../../catalog/seed.yaml")
	if err != nil {
		t.Fatalf("starter catalog should validate: %v\n%s", err, output)
	}

	bad := writeFile(t, "seed.yaml", "rules:\n  - cpu.socket requires motherboard.socket\n")
	output, err = execute(t, "http://unused", "seed", "validate", "-f", bad)
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	if !strings.Contains(output, "rules[0]") {
		t.Errorf("output should name the failing rule:\n%s", output)
	}
}
