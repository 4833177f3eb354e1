// Copyright Contributors to the SeaClaw Platform project

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seaclaw/platform/internal/planstore"
	"github.com/seaclaw/platform/internal/server/types"
)

// TaskHandler serves the operator-facing development plan endpoints.
type TaskHandler struct {
	store *planstore.Store
}

// NewTaskHandler wires the plan tracker endpoints.
func NewTaskHandler(store *planstore.Store) *TaskHandler {
	return &TaskHandler{store: store}
}

// List handles GET /api/v1/platform/tasks with optional phase, sprint, and
// status filters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := planstore.Filter{
		Phase:  q.Get("phase"),
		Status: q.Get("status"),
	}
	if filter.Status != "" && !planstore.ValidStatus(filter.Status) {
		writeError(w, http.StatusBadRequest, "status must be one of todo, in_progress, done, blocked")
		return
	}
	if raw := q.Get("sprint"); raw != "" {
		sprint, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "sprint must be an integer")
			return
		}
		filter.Sprint = &sprint
	}

	tasks, err := h.store.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Update handles PATCH /api/v1/platform/tasks/{id}. Only status and notes
// are writable; a body naming any other field is rejected so operators
// cannot silently lose an edit.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var patch types.PlanTaskPatch
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "only status and notes may be updated")
		return
	}
	if err := types.Validate(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Status == nil && patch.Notes == nil {
		writeError(w, http.StatusBadRequest, "nothing to update: provide status and/or notes")
		return
	}

	if err := h.store.UpdateTask(taskID, patch.Status, patch.Notes); err != nil {
		switch {
		case errors.Is(err, planstore.ErrNotFound):
			writeError(w, http.StatusNotFound, "Task '"+taskID+"' not found")
		case errors.Is(err, planstore.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "task_id": taskID})
}
