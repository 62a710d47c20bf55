package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"talentscout-engine/internal/domain"
)

// errCode is the machine-readable failure class carried in the error
// envelope. Clients switch on the code; messages are for humans.
type errCode string

const (
	codeInvalidJSON    errCode = "invalid_json"
	codeInvalidID      errCode = "invalid_id"
	codeUnparseableJob errCode = "unparseable_job"
	codeSubmitFailed   errCode = "submit_failed"
	codeNotFound       errCode = "not_found"
	codeUnknownSource  errCode = "unknown_source"
	codeSaveFailed     errCode = "save_failed"
	codeReloadFailed   errCode = "reload_failed"
	codeStoreFailed    errCode = "store_failed"
	codeStreamFailed   errCode = "stream_unsupported"
	codeInternal       errCode = "internal_error"
)

type errorBody struct {
	Code      errCode `json:"code"`
	Message   string  `json:"message"`
	RequestID string  `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code errCode, message string) {
	WriteJSON(w, status, errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFrom(r.Context()),
	}})
}

// WriteDomainError maps the engine's error taxonomy onto statuses and codes
// so handlers do not repeat the classification.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var parseErr *domain.JobParseError
	switch {
	case errors.As(err, &parseErr):
		WriteError(w, r, http.StatusBadRequest, codeUnparseableJob, parseErr.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, codeNotFound, err.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, codeInternal, err.Error())
	}
}
