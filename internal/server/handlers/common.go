// Copyright Contributors to the SeaClaw Platform project

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/seaclaw/platform/internal/cluster"
	"github.com/seaclaw/platform/internal/orchestrator"
	"github.com/seaclaw/platform/internal/relay"
	"github.com/seaclaw/platform/internal/server/types"
)

var log = ctrl.Log.WithName("handlers")

// maxBodyBytes bounds request bodies well above the largest legal payload
// (an 8 KiB chat message plus envelope).
const maxBodyBytes = 64 << 10

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(err, "failed to encode response")
	}
}

// writeRaw forwards a workload's JSON body verbatim.
func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error(err, "failed to write response")
	}
}

// writeError writes the uniform error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, types.ErrorResponse{Error: message})
}

// writeDomainError maps a typed component error onto its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	var oe *orchestrator.Error
	if errors.As(err, &oe) {
		writeError(w, oe.Status, oe.Message)
		return
	}
	var re *relay.Error
	if errors.As(err, &re) {
		writeError(w, re.Status, re.Message)
		return
	}
	if errors.Is(err, cluster.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "K8s not available")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// decodeJSON reads the body into dst. Unknown fields pass through; the
// plan-task patch is the one surface that insists on strict bodies and
// decodes itself.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.New("failed to read request body")
	}
	if len(body) == 0 {
		return errors.New("request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("request body is not valid JSON")
	}
	return nil
}
