package httpapi

import (
	"encoding/json"
	"net/http"

	"inferd/internal/coord"
	"inferd/pkg/types"
)

// writeJSONError writes the consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, kind types.ErrorKind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Kind: kind, Code: status})
}

// writeCoordError maps a coordinator error to its HTTP status and kind.
func writeCoordError(w http.ResponseWriter, err error) int {
	status := http.StatusInternalServerError
	switch {
	case coord.IsNotReady(err):
		status = http.StatusConflict
	case coord.IsOverloaded(err):
		status = http.StatusTooManyRequests
	case coord.IsNotFound(err), coord.IsUnknownModel(err):
		status = http.StatusNotFound
	}
	writeJSONError(w, status, coord.Kind(err), err.Error())
	return status
}

// healthStatus maps a readiness phase to the probe status code:
// loaded phases are 200, a load in progress is 202, anything else is 503.
func healthStatus(phase types.Phase) int {
	switch {
	case phase.Loaded():
		return http.StatusOK
	case phase == types.PhaseLoading:
		return http.StatusAccepted
	default:
		return http.StatusServiceUnavailable
	}
}
