package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trustd-project/trustd/trustderr"
)

// errorResponse is the JSON body written for a failed request. Grounded on
// claircore's pkg/jsonerr.Response: a stable {code, message} shape rather
// than a raw error string.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps err to an HTTP status via trustderr.Kind and writes it
// as an errorResponse. Works like http.Error: callers still need a naked
// return after calling it.
func writeError(w http.ResponseWriter, err error) {
	var te *trustderr.Error
	code := trustderr.Internal
	if errors.As(err, &te) {
		code = te.Kind
	}
	status := http.StatusInternalServerError
	switch code {
	case trustderr.Input, trustderr.SearchSyntax:
		status = http.StatusBadRequest
	case trustderr.NotFound:
		status = http.StatusNotFound
	case trustderr.Conflict:
		status = http.StatusConflict
	case trustderr.Unauthorized:
		status = http.StatusUnauthorized
	case trustderr.Forbidden:
		status = http.StatusForbidden
	}
	writeJSON(w, status, errorResponse{Code: code.String(), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
