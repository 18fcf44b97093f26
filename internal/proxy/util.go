package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/modelrelay/modelrelay/internal/types"
)

// maxBodyBytes limits the size of incoming request bodies to prevent memory exhaustion.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MB

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, code, message string) {
	slog.Error("request failed", "status", status, "error", message)
	writeJSON(w, status, types.ErrorResponse{Error: types.ErrorDetail{
		Message: message,
		Type:    errType,
		Code:    code,
	}})
}

func writeSSEHeaders(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(status)
}

func readRequestBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "", "Failed to read request body")
		return nil, false
	}
	return body, true
}
