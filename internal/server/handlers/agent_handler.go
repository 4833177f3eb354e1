// Copyright Contributors to the SeaClaw Platform project

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seaclaw/platform/internal/orchestrator"
	"github.com/seaclaw/platform/internal/registry"
	"github.com/seaclaw/platform/internal/relay"
	"github.com/seaclaw/platform/internal/server/types"
)

// AgentHandler serves the tenant lifecycle and relay endpoints.
type AgentHandler struct {
	orch     *orchestrator.Orchestrator
	relay    *relay.Relay
	registry *registry.Registry
}

// NewAgentHandler wires the tenant endpoints.
func NewAgentHandler(orch *orchestrator.Orchestrator, rl *relay.Relay, reg *registry.Registry) *AgentHandler {
	return &AgentHandler{orch: orch, relay: rl, registry: reg}
}

// pathUsername extracts and validates the {username} path parameter. A
// malformed name is rejected before it can reach the cluster as an object
// name fragment.
func pathUsername(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := chi.URLParam(r, "username")
	if !types.ValidUsername(username) {
		writeError(w, http.StatusBadRequest, "username must be 2-32 characters of [a-z0-9_-]")
		return "", false
	}
	return username, true
}

// lookupTenant loads the registry and resolves one record.
func (h *AgentHandler) lookupTenant(w http.ResponseWriter, username string) (*registry.Tenant, bool) {
	tenants, err := h.registry.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("registry read failed: %v", err))
		return nil, false
	}
	tenant, ok := tenants[username]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Agent '%s' not found", username))
		return nil, false
	}
	return tenant, true
}

// Create handles POST /api/v1/agents/create.
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ApplyDefaults()
	if err := types.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orch.CreateAgent(r.Context(), orchestrator.CreateSpec{
		Username:        req.Username,
		Email:           req.Email,
		Provider:        req.Provider,
		APIKey:          req.APIKey,
		Model:           req.Model,
		Persona:         req.Persona,
		TelegramToken:   req.TelegramToken,
		TelegramChatID:  req.TelegramChatID,
		EnableWebchat:   *req.EnableWebchat,
		EnablePII:       *req.EnablePII,
		EnableShield:    *req.EnableShield,
		EnableAgentZero: *req.EnableAgentZero,
		SwarmMode:       req.SwarmMode,
		TokenBudget:     req.TokenBudget,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.CreateAgentResponse{
		Status:       "created",
		Username:     result.Username,
		WorkloadName: result.WorkloadName,
		WebchatURL:   result.WebchatURL,
		Message:      result.Message,
	})
}

// List handles GET /api/v1/agents.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, err := h.orch.ListAgents(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agents": agents,
		"count":  len(agents),
		"max":    h.orch.MaxInstances(),
	})
}

// Get handles GET /api/v1/agents/{username}.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	info, err := h.orch.GetAgent(r.Context(), username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Delete handles DELETE /api/v1/agents/{username}.
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	if err := h.orch.DeleteAgent(r.Context(), username); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "username": username})
}

// Restart handles POST /api/v1/agents/{username}/restart. The workload is
// deleted and its always-restart policy brings it back.
func (h *AgentHandler) Restart(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	if err := h.orch.RestartAgent(r.Context(), username); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restarting", "username": username})
}

// UpdateConfig handles PATCH /api/v1/agents/{username}/config.
func (h *AgentHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	var req types.UpdateConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := types.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	changes, err := h.orch.PatchConfig(r.Context(), username, orchestrator.ConfigPatch{
		Provider:        req.Provider,
		APIKey:          req.APIKey,
		Model:           req.Model,
		TokenBudget:     req.TokenBudget,
		EnableAgentZero: req.EnableAgentZero,
		SwarmMode:       req.SwarmMode,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated", "changes": changes})
}

// Chat handles POST /api/v1/agents/{username}/chat. The workload's JSON
// response comes back verbatim; its non-2xx statuses propagate.
func (h *AgentHandler) Chat(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	var req types.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := types.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := h.lookupTenant(w, username); !ok {
		return
	}

	response, err := h.relay.Send(r.Context(), username, req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, response)
}

// maxProjectNameLen bounds the sanitized project directory name.
const maxProjectNameLen = 64

// maxProjectMessageLen bounds the clone instruction relayed to the agent.
const maxProjectMessageLen = 4096

// Project handles POST /api/v1/agents/{username}/project: a thin relay
// that asks the agent to clone a repository, then records the project. The
// record is written whenever the relay succeeded, whatever the agent said.
func (h *AgentHandler) Project(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	var req types.ProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := types.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := h.lookupTenant(w, username); !ok {
		return
	}

	branch := req.Branch
	if branch == "" {
		branch = "main"
	}
	raw := req.ProjectName
	if raw == "" {
		raw = req.RepoURL
	}
	name := sanitizeProjectName(raw)
	if name == "" {
		writeError(w, http.StatusBadRequest, "could not derive a project name from the request")
		return
	}

	path := "/workspace/" + name
	instruction := fmt.Sprintf(
		"Clone the git repository %s (branch %s) into %s. Use: git clone -b %s %s %s",
		req.RepoURL, branch, path, branch, req.RepoURL, path)
	if len(instruction) > maxProjectMessageLen {
		writeError(w, http.StatusBadRequest, "project request is too long")
		return
	}

	response, err := h.relay.Send(r.Context(), username, instruction)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.registry.Update(func(tenants map[string]*registry.Tenant) error {
		t, ok := tenants[username]
		if !ok {
			return orchestrator.NotFound(username)
		}
		if t.Projects == nil {
			t.Projects = map[string]registry.Project{}
		}
		t.Projects[name] = registry.Project{
			RepoURL:   req.RepoURL,
			Branch:    branch,
			Path:      path,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		return nil
	}); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "cloning",
		"project_name":   name,
		"path":           path,
		"agent_response": response,
	})
}

// Workspace handles GET /api/v1/agents/{username}/workspace: relays a
// listing request to the agent and returns it with the recorded projects.
func (h *AgentHandler) Workspace(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	tenant, ok := h.lookupTenant(w, username)
	if !ok {
		return
	}

	response, err := h.relay.Send(r.Context(), username,
		"List the contents of /workspace with one entry per line. Do not add commentary.")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	projects := tenant.Projects
	if projects == nil {
		projects = map[string]registry.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workspace": response,
		"projects":  projects,
	})
}

// Tasks handles GET /api/v1/agents/{username}/tasks. A workload that does
// not expose /api/tasks yields an empty list with a note rather than an
// error, since the task API is optional in the workload contract.
func (h *AgentHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	username, ok := pathUsername(w, r)
	if !ok {
		return
	}
	if _, ok := h.lookupTenant(w, username); !ok {
		return
	}

	response, err := h.relay.GetTasks(r.Context(), username, r.URL.Query().Get("status"))
	if errors.Is(err, relay.ErrNoTaskAPI) {
		writeJSON(w, http.StatusOK, map[string]any{
			"tasks": []any{},
			"note":  relay.ErrNoTaskAPI.Error(),
		})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, response)
}

// sanitizeProjectName derives a filesystem-safe directory name: the last
// path segment of the input with trailing slashes and ".git" stripped,
// every character outside [A-Za-z0-9_-] mapped to '-', truncated.
func sanitizeProjectName(raw string) string {
	s := strings.TrimRight(raw, "/")
	s = strings.TrimSuffix(s, ".git")
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		s = s[i+1:]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	name := b.String()
	if len(name) > maxProjectNameLen {
		name = name[:maxProjectNameLen]
	}
	if strings.Trim(name, "-") == "" {
		return ""
	}
	return name
}
