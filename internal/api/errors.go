// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a 400 with the error message.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// writeUnauthorized writes a 401 response in the robot wire shape.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"status":  "error",
		"message": message,
	})
}

// writeNotFound writes a 404 response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": message})
}

// writeInternal writes a 500 response.
func writeInternal(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

// writeDomainError reports a domain conflict. Deliberately 200: the
// deployed clients distinguish success from conflict by the status field,
// not the HTTP code.
func writeDomainError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "error",
		"message": message,
	})
}

// writeSuccess reports a domain success with a human-readable message.
func writeSuccess(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}
