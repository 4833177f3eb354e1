// Copyright Contributors to the SeaClaw Platform project

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seaclaw/platform/internal/server/types"
	"github.com/seaclaw/platform/internal/swarm"
)

// SwarmHandler serves the worker lifecycle and coordinator relay endpoints.
type SwarmHandler struct {
	swarm *swarm.Controller
}

// NewSwarmHandler wires the swarm endpoints.
func NewSwarmHandler(c *swarm.Controller) *SwarmHandler {
	return &SwarmHandler{swarm: c}
}

// Spawn handles POST /api/v1/agents/{username}/workers.
func (h *SwarmHandler) Spawn(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	var req types.WorkerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := types.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Persona == "" {
		req.Persona = types.DefaultPersona
	}
	if req.TTLSeconds == 0 {
		req.TTLSeconds = types.DefaultWorkerTTL
	}

	result, err := h.swarm.SpawnWorker(r.Context(), username, swarm.WorkerRequest{
		Task:       req.Task,
		WorkerName: req.WorkerName,
		Persona:    req.Persona,
		TTLSeconds: req.TTLSeconds,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.SpawnWorkerResponse{
		Status:         "spawning",
		WorkerUsername: result.WorkerUsername,
		WorkloadName:   result.WorkloadName,
		Coordinator:    result.Coordinator,
		Task:           result.Task,
	})
}

// List handles GET /api/v1/agents/{username}/workers.
func (h *SwarmHandler) List(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	workers, err := h.swarm.ListWorkers(r.Context(), username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"coordinator": username,
		"workers":     workers,
		"count":       len(workers),
	})
}

// Terminate handles DELETE /api/v1/agents/{username}/workers/{worker}.
func (h *SwarmHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	worker := chi.URLParam(r, "worker")
	if worker == "" {
		writeError(w, http.StatusBadRequest, "worker id is required")
		return
	}
	if err := h.swarm.TerminateWorker(r.Context(), username, worker); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "terminated", "worker": worker})
}

// Relay handles POST /api/v1/agents/{username}/relay: a worker (or the
// coordinator itself) forwards a message to the coordinator's workload.
func (h *SwarmHandler) Relay(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	var req types.RelayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := types.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.swarm.RelayToCoordinator(r.Context(), username, req.FromAgent, req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"to":       username,
		"from":     req.FromAgent,
		"response": response,
	})
}
