package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/codenerd-labs/auditor/internal/logging"
	"github.com/codenerd-labs/auditor/internal/orchestrator"
	"github.com/codenerd-labs/auditor/internal/store"
)

// errorEnvelope is the uniform JSON error body for every non-2xx
// response: `{"error":{"code":"...","message":"..."}}`, per spec.md §6.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logging.HTTP().Errorw("failed to encode response", "error", err)
		}
	}
}

// writeError emits the §6 error envelope. code should be one of the
// spec's codes (NOT_FOUND, BAD_REQUEST, CONFLICT, INTERNAL,
// SERVICE_UNAVAILABLE) though handlers may pass a more specific one.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// writeStoreError maps a store.ErrNotFound / generic error to a response,
// following the teacher's pattern of translating sentinel errors at the
// API boundary rather than leaking internal error values to clients.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}
	logging.HTTP().Errorw("store error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func writeOrchestratorError(w http.ResponseWriter, err error) {
	var oerr *orchestrator.OrchestratorError
	if errors.As(err, &oerr) {
		switch oerr.Kind {
		case orchestrator.ErrUnknownEngine:
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", oerr.Error())
			return
		case orchestrator.ErrUnknownProject:
			writeError(w, http.StatusNotFound, "NOT_FOUND", oerr.Error())
			return
		case orchestrator.ErrAdmission:
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", oerr.Error())
			return
		}
	}
	logging.HTTP().Errorw("orchestrator error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
