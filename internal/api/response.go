package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/zaloga/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// domainError writes err with the status matching its kind. Errors without a
// kind are logged and reported as a generic failure to do what.
func domainError(w http.ResponseWriter, r *http.Request, err error, what string) {
	var e *model.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case model.KindValidation:
			jsonError(w, http.StatusBadRequest, e.Message)
		case model.KindConflict:
			jsonError(w, http.StatusConflict, e.Message)
		case model.KindNotFound:
			jsonError(w, http.StatusNotFound, e.Message)
		default:
			jsonError(w, http.StatusInternalServerError, "failed to "+what)
		}
		return
	}
	slog.Error("request failed", "op", what, "error", err, "request_id", RequestID(r.Context()))
	jsonError(w, http.StatusInternalServerError, "failed to "+what)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(r *http.Request, target any) error {
	if err := decodeJSON(r, target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// pathID parses the named path value as a positive ID.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
