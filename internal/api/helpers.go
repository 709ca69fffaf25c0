package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/engine"
	"sunnydapp/internal/models"
)

// statusForKind maps an engine failure kind onto an HTTP status code
func statusForKind(kind engine.Kind) int {
	switch kind {
	case "":
		return http.StatusOK
	case engine.KindValidation:
		return http.StatusBadRequest
	case engine.KindAuthorization:
		return http.StatusForbidden
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindStateConflict:
		return http.StatusConflict
	case engine.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeSignatures pairs each base64 signature with the sequence its signer claims
func decodeSignatures(req models.InvokeRequest) (map[string]auth.Signature, error) {
	out := make(map[string]auth.Signature, len(req.Signatures))
	for account, sig := range req.Signatures {
		raw, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			return nil, fmt.Errorf("signature for %s is not base64: %w", account, err)
		}
		out[account] = auth.Signature{Sequence: req.Sequences[account], Sig: raw}
	}
	return out, nil
}

// BuildAgreementResponse adds the derived event time and outcome to a stored agreement
func BuildAgreementResponse(a *models.Agreement) models.AgreementResponse {
	resp := models.AgreementResponse{
		Agreement:    *a,
		EventTimeUTC: a.EventTime(),
	}
	if a.Status != models.StatusPending {
		occurred := a.EventOccurred()
		resp.EventOccurred = &occurred
	}
	return resp
}

// queryInt reads a bounded non-negative integer query parameter
func queryInt(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || (max > 0 && v > max) {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}

// sendEngineError maps an engine error onto its status code
func (s *Server) sendEngineError(w http.ResponseWriter, err error) {
	s.sendError(w, err.Error(), statusForKind(engine.KindOf(err)))
}
