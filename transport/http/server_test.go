package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trustd-project/trustd/service"
)

func TestParsePageDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v2/advisory", nil)
	if got := parsePage(r); got != service.DefaultPage {
		t.Fatalf("parsePage() = %+v, want default %+v", got, service.DefaultPage)
	}
}

func TestParsePageOverrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v2/advisory?offset=10&limit=5", nil)
	got := parsePage(r)
	if got.Offset != 10 || got.Limit != 5 {
		t.Fatalf("parsePage() = %+v, want {10 5}", got)
	}
}

func TestParsePageIgnoresGarbage(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v2/advisory?offset=nope", nil)
	if got := parsePage(r); got != service.DefaultPage {
		t.Fatalf("parsePage() = %+v, want default on unparseable offset", got)
	}
}

func TestParseDeprecation(t *testing.T) {
	cases := []struct {
		query string
		want  service.Deprecation
	}{
		{"", service.Ignore},
		{"?deprecated=true", service.Consider},
		{"?deprecated=false", service.Ignore},
	}
	for _, c := range cases {
		r := httptest.NewRequest("GET", "/api/v2/advisory"+c.query, nil)
		if got := parseDeprecation(r); got != c.want {
			t.Fatalf("parseDeprecation(%q) = %v, want %v", c.query, got, c.want)
		}
	}
}

func TestHasPermission(t *testing.T) {
	perms := []string{"read:foo", "write:advisory"}
	if !hasPermission(perms, "write:advisory") {
		t.Fatal("expected write:advisory to be present")
	}
	if hasPermission(perms, "write:sbom") {
		t.Fatal("did not expect write:sbom to be present")
	}
}

func TestRequirePermissionRejectsMissingHeader(t *testing.T) {
	s := &Server{Auth: nil}
	called := false
	h := s.requirePermission("write:advisory", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	rec := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/v2/advisory", nil)
	h(rec, r)
	if called {
		t.Fatal("handler should not run without a bearer token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
