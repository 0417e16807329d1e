package orchestrator

import (
	"encoding/json"
	"net/http"
	"time"
)

// writeJSONError implements the generic error response from spec §7:
// {error, message, timestamp}, Cache-Control: no-store, no stack traces.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":     "Proxy Error",
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
