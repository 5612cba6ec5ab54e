package http

import (
	"net/http"

	"github.com/trustd-project/trustd/trustderr"
)

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	vendor := r.PathValue("vendor")
	org, err := s.Organization.ByCpeKey(r.Context(), vendor)
	if err != nil {
		writeError(w, err)
		return
	}
	if org == nil {
		writeError(w, trustderr.New(trustderr.NotFound, "getOrganization", "no organization for cpe_key "+vendor))
		return
	}
	writeJSON(w, http.StatusOK, org)
}
