package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HTTP status code mappings for the analyzer error kinds
var errorStatusCodes = map[error]int{
	ErrDecodeFailed:     http.StatusUnprocessableEntity,
	ErrInvalidFormat:    http.StatusBadRequest,
	ErrWindowOutOfRange: http.StatusBadRequest,
	ErrNoSpeechDetected: http.StatusUnprocessableEntity,
	ErrEmptyInput:       http.StatusBadRequest,
}

// WriteError writes a standardized error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error) {
	var statusCode int
	var response map[string]interface{}

	var serr *Error
	if err == nil {
		statusCode = http.StatusInternalServerError
		response = map[string]interface{}{
			"error": "Unknown error",
		}
	} else if errors.As(err, &serr) {
		statusCode = HTTPStatusFromError(serr.original)
		response = serr.AsJSON()
	} else {
		statusCode = HTTPStatusFromError(err)
		response = map[string]interface{}{
			"error": err.Error(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(response)
}

// HTTPStatusFromError determines the appropriate HTTP status code for an error
func HTTPStatusFromError(err error) int {
	for sentinel, code := range errorStatusCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return http.StatusInternalServerError
}
