// Package http is a thin transport layer demonstrating that the core
// services are reachable from HTTP handlers; it is not a full REST
// implementation (HTTP transport is explicitly out of scope for the
// store itself, per the Authenticator/storage/query packages it wires
// together). Routing uses the stdlib net/http.ServeMux method+wildcard
// patterns (Go 1.22+); handler shape and the {code,message} error body
// are grounded on claircore's libvuln/http/vulnscanhandler.go and
// pkg/jsonerr.
package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustd-project/trustd/auth"
	"github.com/trustd-project/trustd/service"
	"github.com/trustd-project/trustd/storage"
)

// Server holds the dependencies every handler needs.
type Server struct {
	Pool         *pgxpool.Pool
	Storage      storage.Backend
	Auth         *auth.Authenticator
	Advisory     *service.AdvisoryService
	Sbom         *service.SbomService
	Organization *service.OrganizationService
	UploadLimit  int64
}

// NewMux builds the route table described in spec.md §6.
func NewMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v2/advisory", s.listAdvisories)
	mux.HandleFunc("GET /api/v2/advisory/{key}", s.getAdvisory)
	mux.HandleFunc("GET /api/v2/advisory/{key}/download", s.downloadAdvisory)
	mux.HandleFunc("POST /api/v2/advisory", s.requirePermission("write:advisory", s.ingestAdvisory))
	mux.HandleFunc("DELETE /api/v2/advisory/{key}", s.requirePermission("write:advisory", s.deprecateAdvisory))

	mux.HandleFunc("GET /api/v2/sbom/{id}/package", s.listSbomPackages)
	mux.HandleFunc("GET /api/v2/sbom/{id}/described", s.describesPackages)
	mux.HandleFunc("POST /api/v2/sbom", s.requirePermission("write:sbom", s.ingestSbom))

	mux.HandleFunc("GET /api/v2/organization/{vendor}", s.getOrganization)

	return mux
}

// requirePermission wraps next so it only runs once the request's bearer
// token validates and carries perm among its derived permissions.
func (s *Server) requirePermission(perm string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "unauthorized", Message: "missing bearer token"})
			return
		}
		validated, err := s.Auth.ValidateToken(token)
		if err != nil {
			writeError(w, err)
			return
		}
		if !hasPermission(validated.Permissions, perm) {
			writeJSON(w, http.StatusForbidden, errorResponse{Code: "forbidden", Message: "missing permission " + perm})
			return
		}
		next(w, r)
	}
}

func hasPermission(perms []string, want string) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}

// parsePage reads offset/limit query params, falling back to
// service.DefaultPage for anything missing or unparseable.
func parsePage(r *http.Request) service.Page {
	page := service.DefaultPage
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			page.Offset = uint(n)
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			page.Limit = uint(n)
		}
	}
	return page
}

func parseDeprecation(r *http.Request) service.Deprecation {
	if v := r.URL.Query().Get("deprecated"); v == "true" {
		return service.Consider
	}
	return service.Ignore
}
