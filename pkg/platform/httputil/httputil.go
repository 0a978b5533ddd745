// Package httputil renders domain errors and JSON bodies for HTTP handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "certflow/pkg/domain-errors"
)

// ErrorResponse is the wire shape of every error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// StatusFor maps an error to its HTTP status by category.
func StatusFor(err error) int {
	switch dErrors.CategoryOf(err) {
	case dErrors.CategoryValidation:
		if dErrors.HasCode(err, dErrors.CodeIncompleteProfile) ||
			dErrors.HasCode(err, dErrors.CodeMissingDocuments) ||
			dErrors.HasCode(err, dErrors.CodeMissingNotes) ||
			dErrors.HasCode(err, dErrors.CodeScorecardIncomplete) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case dErrors.CategoryInvalidTransition, dErrors.CategoryConflict:
		return http.StatusConflict
	case dErrors.CategoryNotFound:
		return http.StatusNotFound
	case dErrors.CategoryUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CategoryForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as JSON. Internal errors never leak their message.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: string(dErrors.CodeInternal)}
	if de, ok := dErrors.From(err); ok && status != http.StatusInternalServerError {
		resp.Error = string(de.Code)
		resp.ErrorDescription = de.Message
	}
	WriteJSON(w, status, resp)
}

// WriteJSON writes body with status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
