// Copyright Contributors to the SeaClaw Platform project

// Package swarm spawns ephemeral worker tenants under a coordinator and
// enforces the relay authorization rule between them. Workers are ordinary
// tenants created through the instance orchestrator, with inherited
// credentials, reduced capability flags, and a hard-capped budget.
package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/seaclaw/platform/internal/orchestrator"
	"github.com/seaclaw/platform/internal/registry"
	"github.com/seaclaw/platform/internal/relay"
)

var log = ctrl.Log.WithName("swarm")

const (
	// workerTokenBudget caps a worker's spend regardless of what the
	// coordinator's own budget is.
	workerTokenBudget = 10000

	// workerIDMaxLen bounds the short identifier. The full username
	// (coordinator + "-" + id) still has to fit the username limit.
	workerIDMaxLen = 20

	usernameMaxLen = 32
)

// WorkerRequest describes one worker to spawn. TTL is recorded for garbage
// collection tooling but not enforced here.
type WorkerRequest struct {
	Task       string
	WorkerName string
	Persona    string
	TTLSeconds int
}

// SpawnResult reports a successfully spawned worker.
type SpawnResult struct {
	WorkerUsername string
	WorkloadName   string
	Coordinator    string
	Task           string
}

// WorkerInfo is a workers-map entry merged with a live status read.
type WorkerInfo struct {
	Username     string `json:"username"`
	Task         string `json:"task"`
	Persona      string `json:"persona"`
	WorkloadName string `json:"workload_name"`
	SpawnedAt    string `json:"spawned_at"`
	TTLSeconds   int    `json:"ttl_seconds"`
	Status       string `json:"status"`
}

// Controller drives the worker lifecycle for coordinators.
type Controller struct {
	registry *registry.Registry
	orch     *orchestrator.Orchestrator
	relay    *relay.Relay
}

// New wires a swarm controller.
func New(reg *registry.Registry, orch *orchestrator.Orchestrator, r *relay.Relay) *Controller {
	return &Controller{registry: reg, orch: orch, relay: r}
}

// SpawnWorker creates an ephemeral worker under the coordinator. The
// coordinator must be a non-worker tenant with swarm mode enabled; the
// worker inherits its provider, credential, and model from the
// coordinator's live configuration bundle.
func (c *Controller) SpawnWorker(ctx context.Context, coordinator string, req WorkerRequest) (*SpawnResult, error) {
	tenants, err := c.registry.Load()
	if err != nil {
		return nil, orchestrator.NewError(http.StatusInternalServerError, "registry read failed: %v", err)
	}
	coord, ok := tenants[coordinator]
	if !ok {
		return nil, orchestrator.NotFound(coordinator)
	}
	if coord.IsWorker {
		return nil, orchestrator.NewError(http.StatusForbidden, "Workers cannot spawn workers")
	}
	if !coord.SwarmMode {
		return nil, orchestrator.NewError(http.StatusForbidden, "Swarm mode is not enabled for agent '%s'", coordinator)
	}

	bundle, err := c.orch.ReadBundle(ctx, coordinator)
	if err != nil {
		return nil, err
	}

	full := coordinator + "-" + newWorkerID(req.WorkerName)
	if len(full) > usernameMaxLen {
		return nil, orchestrator.NewError(http.StatusBadRequest,
			"Worker username '%s' exceeds %d characters", full, usernameMaxLen)
	}

	spec := orchestrator.CreateSpec{
		Username:        full,
		Provider:        bundle.Provider,
		APIKey:          bundle.APIKey,
		Model:           bundle.Model,
		Persona:         req.Persona,
		EnableWebchat:   false,
		EnablePII:       coord.PIIEnabled,
		EnableShield:    coord.ShieldEnabled,
		EnableAgentZero: false,
		TokenBudget:     workerTokenBudget,
		IsWorker:        true,
		Coordinator:     coordinator,
		WorkerTask:      req.Task,
		TTLSeconds:      req.TTLSeconds,
	}
	if _, err := c.orch.CreateAgent(ctx, spec); err != nil {
		return nil, err
	}

	log.Info("spawned worker", "coordinator", coordinator, "worker", full, "task", req.Task)
	return &SpawnResult{
		WorkerUsername: full,
		WorkloadName:   orchestrator.WorkloadName(full),
		Coordinator:    coordinator,
		Task:           req.Task,
	}, nil
}

// TerminateWorker deletes a worker's cluster objects and removes it from
// both registry sides. The worker may be named by its short id or its full
// username; an exact workers-map key wins over composition.
func (c *Controller) TerminateWorker(ctx context.Context, coordinator, worker string) error {
	tenants, err := c.registry.Load()
	if err != nil {
		return orchestrator.NewError(http.StatusInternalServerError, "registry read failed: %v", err)
	}
	coord, ok := tenants[coordinator]
	if !ok {
		return orchestrator.NotFound(coordinator)
	}

	full, ok := resolveWorker(tenants, coord, coordinator, worker)
	if !ok {
		return orchestrator.NewError(http.StatusNotFound, "Worker '%s' not found", worker)
	}

	if err := c.orch.DeleteClusterObjects(ctx, full); err != nil {
		return err
	}

	if err := c.registry.Update(func(tenants map[string]*registry.Tenant) error {
		if coord, ok := tenants[coordinator]; ok {
			delete(coord.Workers, full)
		}
		if t, ok := tenants[full]; ok && t.IsWorker {
			delete(tenants, full)
		}
		return nil
	}); err != nil {
		return err
	}

	log.Info("terminated worker", "coordinator", coordinator, "worker", full)
	return nil
}

// ListWorkers returns the coordinator's workers, each with a live status,
// ordered by username.
func (c *Controller) ListWorkers(ctx context.Context, coordinator string) ([]WorkerInfo, error) {
	tenants, err := c.registry.Load()
	if err != nil {
		return nil, orchestrator.NewError(http.StatusInternalServerError, "registry read failed: %v", err)
	}
	coord, ok := tenants[coordinator]
	if !ok {
		return nil, orchestrator.NotFound(coordinator)
	}

	names := make([]string, 0, len(coord.Workers))
	for name := range coord.Workers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]WorkerInfo, 0, len(names))
	for _, name := range names {
		w := coord.Workers[name]
		out = append(out, WorkerInfo{
			Username:     name,
			Task:         w.Task,
			Persona:      w.Persona,
			WorkloadName: w.WorkloadName,
			SpawnedAt:    w.SpawnedAt,
			TTLSeconds:   w.TTLSeconds,
			Status:       orchestrator.DeriveStatus(c.orch.LiveStatus(ctx, name)),
		})
	}
	return out, nil
}

// RelayToCoordinator forwards a message to the coordinator's workload after
// checking the sender: only the coordinator itself or a current key of its
// workers map may relay.
func (c *Controller) RelayToCoordinator(ctx context.Context, coordinator, fromAgent, message string) (json.RawMessage, error) {
	tenants, err := c.registry.Load()
	if err != nil {
		return nil, orchestrator.NewError(http.StatusInternalServerError, "registry read failed: %v", err)
	}
	coord, ok := tenants[coordinator]
	if !ok {
		return nil, orchestrator.NotFound(coordinator)
	}

	if !relayAuthorized(coord, coordinator, fromAgent) {
		return nil, orchestrator.NewError(http.StatusForbidden,
			"Agent '%s' is not authorized to relay to '%s'", fromAgent, coordinator)
	}

	log.Info("relaying message", "from", fromAgent, "to", coordinator)
	return c.relay.Send(ctx, coordinator, message)
}

func relayAuthorized(coord *registry.Tenant, coordinator, fromAgent string) bool {
	if fromAgent == coordinator {
		return true
	}
	_, ok := coord.Workers[fromAgent]
	return ok
}

// resolveWorker maps a short id or full username onto the worker's full
// username. A worker known only by a stale top-level record (its map entry
// lost to a partial failure) still resolves so terminate can finish the
// cleanup.
func resolveWorker(tenants map[string]*registry.Tenant, coord *registry.Tenant, coordinator, worker string) (string, bool) {
	for _, full := range []string{worker, coordinator + "-" + worker} {
		if _, ok := coord.Workers[full]; ok {
			return full, true
		}
		if t, ok := tenants[full]; ok && t.IsWorker && t.Coordinator == coordinator {
			return full, true
		}
	}
	return "", false
}

// newWorkerID derives the worker short identifier: the requested name when
// given, otherwise "w" plus the millisecond clock modulo 100000. Either way
// the result is lowercased, restricted to [a-z0-9_-], and truncated.
func newWorkerID(requested string) string {
	id := requested
	if id == "" {
		id = fmt.Sprintf("w%d", time.Now().UnixMilli()%100000)
	}
	id = strings.ToLower(id)

	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := b.String()
	if len(out) > workerIDMaxLen {
		out = out[:workerIDMaxLen]
	}
	return out
}
