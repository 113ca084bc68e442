// Package render holds the JSON helpers shared by the HTTP handlers.
package render

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"englishbuddy/pkg/apperror"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// JSON writes value with the given status code.
func JSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// Decode reads a JSON body into value. Malformed or missing bodies become validation errors.
func Decode(w http.ResponseWriter, r *http.Request, value any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(value); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.NewValidation("Request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.NewValidation("Request body is too large")
		}
		return apperror.NewValidation("Invalid request body")
	}
	return nil
}
