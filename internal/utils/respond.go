package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/logger"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warn("encode_response_failed", "err", err)
	}
}

// WriteError writes {"error": msg} with the status apperr maps err to.
func WriteError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		logger.L().Error("request_failed", "status", status, "err", err)
	}
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}

// DecodeJSON reads a JSON body into dst. Malformed bodies become a ValidationError.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("body", "request body is empty")
		}
		return apperr.Invalid("body", "invalid JSON: "+err.Error())
	}
	return nil
}
