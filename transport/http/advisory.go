package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/ossf/osv-schema/bindings/go/osvschema"

	"github.com/trustd-project/trustd/digest"
	"github.com/trustd-project/trustd/ingest"
	"github.com/trustd-project/trustd/ingest/osv"
	"github.com/trustd-project/trustd/storage"
	"github.com/trustd-project/trustd/trustderr"
)

func (s *Server) listAdvisories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := s.Advisory.FetchAdvisories(r.Context(), q.Get("q"), q.Get("sort"), parsePage(r), parseDeprecation(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getAdvisory(w http.ResponseWriter, r *http.Request) {
	details, err := s.Advisory.FetchAdvisory(r.Context(), r.PathValue("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) downloadAdvisory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	rc, err := s.Storage.Retrieve(r.Context(), key)
	if err != nil {
		if err == storage.ErrNotFound {
			writeError(w, trustderr.New(trustderr.NotFound, "downloadAdvisory", "no document for key "+key))
			return
		}
		writeError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	io.Copy(w, rc)
}

func (s *Server) deprecateAdvisory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("key"))
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Input, "deprecateAdvisory", "key must be a uuid", err))
		return
	}
	found, err := s.Advisory.DeprecateAdvisory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, trustderr.New(trustderr.NotFound, "deprecateAdvisory", "no advisory "+id.String()))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ingestAdvisory reads an OSV vulnerability document from the request
// body (optionally compressed per Content-Encoding), stores the raw
// bytes, translates it, and writes the result in one transaction.
func (s *Server) ingestAdvisory(w http.ResponseWriter, r *http.Request) {
	lr, err := storage.NewLimitedReader(r.Body, storage.Encoding(r.Header.Get("Content-Encoding")), s.UploadLimit)
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Input, "ingestAdvisory", "unsupported content-encoding", err))
		return
	}
	defer lr.Close()

	body, err := io.ReadAll(lr)
	if err != nil {
		if err == storage.ErrLimitExceeded {
			writeError(w, trustderr.Wrap(trustderr.Input, "ingestAdvisory", "upload exceeds configured limit", err))
			return
		}
		writeError(w, trustderr.Wrap(trustderr.Input, "ingestAdvisory", "read body", err))
		return
	}

	var doc osvschema.Vulnerability
	if err := json.Unmarshal(body, &doc); err != nil {
		writeError(w, trustderr.Wrap(trustderr.Input, "ingestAdvisory", "invalid OSV document", err))
		return
	}

	key, size, err := s.Storage.Store(r.Context(), bytes.NewReader(body))
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Storage, "ingestAdvisory", "store document", err))
		return
	}
	digests := digest.Compute(body)

	tx, err := s.Pool.Begin(r.Context())
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Internal, "ingestAdvisory", "begin tx", err))
		return
	}
	defer tx.Rollback(r.Context())

	documentID, err := ingest.StoreDocument(r.Context(), tx, key, size, digests)
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Internal, "ingestAdvisory", "store source_document", err))
		return
	}

	result := osv.Translate(doc, r.URL.Query().Get("issuer"), uuid.New(), documentID)
	for k, v := range labelsFromQuery(r) {
		result.Advisory.Labels[k] = v
	}
	if err := osv.Load(r.Context(), tx, result); err != nil {
		writeError(w, trustderr.Wrap(trustderr.Internal, "ingestAdvisory", "load", err))
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		writeError(w, trustderr.Wrap(trustderr.Internal, "ingestAdvisory", "commit", err))
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		ID       uuid.UUID    `json:"id"`
		Warnings []osv.Warning `json:"warnings,omitempty"`
	}{ID: result.Advisory.ID, Warnings: result.Warnings})
}

// labelsFromQuery extracts labels.<k>=<v> query parameters per spec.md
// §6's POST /advisory route.
func labelsFromQuery(r *http.Request) map[string]string {
	out := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if rest, ok := strings.CutPrefix(k, "labels."); ok && len(vs) > 0 {
			out[rest] = vs[0]
		}
	}
	return out
}
