package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bricsengine/core/types"
	nativecommon "bricsengine/native/common"
	"bricsengine/observability"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}

// statusFor maps an engine error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrCurrencyNotFound), errors.Is(err, nativecommon.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, nativecommon.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, nativecommon.ErrRatioMismatch), errors.Is(err, nativecommon.ErrSlippageExceeded):
		return http.StatusConflict
	case errors.Is(err, nativecommon.ErrBelowMinimum),
		errors.Is(err, nativecommon.ErrNotEligible),
		errors.Is(err, nativecommon.ErrInsufficientBalance),
		errors.Is(err, nativecommon.ErrTransferFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	kind := observability.ErrorKind(err)
	if errors.Is(err, types.ErrCurrencyNotFound) {
		kind = "unknown_currency"
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("bricsd: request failed", "error", err)
		message = "internal error"
	}
	writeError(w, status, kind, message)
}

func badRequest(w http.ResponseWriter, format string, args ...interface{}) {
	writeError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf(format, args...))
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func moduleOf(path string) string {
	trimmed := strings.TrimPrefix(path, "/v1/")
	if trimmed == path {
		return "root"
	}
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if trimmed == "" {
		return "root"
	}
	return trimmed
}
