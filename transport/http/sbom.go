package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
	spdxtools "github.com/spdx/tools-golang/spdx/v2/v2_3"

	"github.com/trustd-project/trustd/digest"
	"github.com/trustd-project/trustd/ingest"
	"github.com/trustd-project/trustd/ingest/sbom"
	"github.com/trustd-project/trustd/ingest/sbom/cyclonedx"
	"github.com/trustd-project/trustd/ingest/sbom/spdx"
	"github.com/trustd-project/trustd/service"
	"github.com/trustd-project/trustd/storage"
	"github.com/trustd-project/trustd/trustderr"
)

func (s *Server) listSbomPackages(w http.ResponseWriter, r *http.Request) {
	s.sbomPackages(w, r, s.Sbom.FetchSbomPackages)
}

func (s *Server) describesPackages(w http.ResponseWriter, r *http.Request) {
	s.sbomPackages(w, r, s.Sbom.DescribesPackages)
}

// sbomPackages is shared by listSbomPackages/describesPackages, which
// differ only in which SbomService method produces the package list.
func (s *Server) sbomPackages(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, sbomID uuid.UUID) ([]service.QualifiedPackage, error)) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Input, "sbomPackages", "id must be a uuid", err))
		return
	}
	packages, err := fetch(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, packages)
}

func (s *Server) ingestSbom(w http.ResponseWriter, r *http.Request) {
	lr, err := storage.NewLimitedReader(r.Body, storage.Encoding(r.Header.Get("Content-Encoding")), s.UploadLimit)
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Input, "ingestSbom", "unsupported content-encoding", err))
		return
	}
	defer lr.Close()

	body, err := io.ReadAll(lr)
	if err != nil {
		if err == storage.ErrLimitExceeded {
			writeError(w, trustderr.Wrap(trustderr.Input, "ingestSbom", "upload exceeds configured limit", err))
			return
		}
		writeError(w, trustderr.Wrap(trustderr.Input, "ingestSbom", "read body", err))
		return
	}

	doc, err := parseSbomDocument(r.URL.Query().Get("format"), body)
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Input, "ingestSbom", "invalid SBOM document", err))
		return
	}

	key, size, err := s.Storage.Store(r.Context(), bytes.NewReader(body))
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Storage, "ingestSbom", "store document", err))
		return
	}
	digests := digest.Compute(body)

	tx, err := s.Pool.Begin(r.Context())
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Internal, "ingestSbom", "begin tx", err))
		return
	}
	defer tx.Rollback(r.Context())

	documentID, err := ingest.StoreDocument(r.Context(), tx, key, size, digests)
	if err != nil {
		writeError(w, trustderr.Wrap(trustderr.Internal, "ingestSbom", "store source_document", err))
		return
	}

	sbomID := uuid.New()
	if err := sbom.Load(r.Context(), tx, sbomID, documentID, doc); err != nil {
		writeError(w, trustderr.Wrap(trustderr.Input, "ingestSbom", "load", err))
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		writeError(w, trustderr.Wrap(trustderr.Internal, "ingestSbom", "commit", err))
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		ID uuid.UUID `json:"id"`
	}{ID: sbomID})
}

// parseSbomDocument dispatches on the format query param ("cyclonedx" or
// "spdx") to the matching adapter package.
func parseSbomDocument(format string, body []byte) (sbom.Document, error) {
	switch format {
	case "spdx":
		var sd spdxtools.Document
		if err := json.Unmarshal(body, &sd); err != nil {
			return sbom.Document{}, err
		}
		return spdx.Convert(&sd)
	default:
		bom := new(cdx.BOM)
		decoder := cdx.NewBOMDecoder(bytes.NewReader(body), cdx.BOMFileFormatJSON)
		if err := decoder.Decode(bom); err != nil {
			return sbom.Document{}, err
		}
		return cyclonedx.Convert(bom)
	}
}
