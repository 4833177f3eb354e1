// Copyright Contributors to the SeaClaw Platform project

// Package orchestrator realizes tenants as cluster objects. Creating an
// agent submits a configuration bundle, a persona document, the workload,
// and its endpoint; deleting reaps them idempotently. Partial failures are
// never rolled back: the registry record is written only after the workload
// is accepted, and orphaned objects are absorbed by the next create or
// delete for the same username.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/seaclaw/platform/internal/cluster"
	"github.com/seaclaw/platform/internal/config"
	"github.com/seaclaw/platform/internal/registry"
)

var log = ctrl.Log.WithName("orchestrator")

// Error is a domain error carrying the HTTP status the API surface answers
// with. The message is user-visible.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError builds a domain error with the given status.
func NewError(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// NotFound is the canonical unknown-tenant error.
func NotFound(username string) *Error {
	return NewError(http.StatusNotFound, "Agent '%s' not found", username)
}

func conflict(username string) *Error {
	return NewError(http.StatusConflict, "Agent '%s' already exists", username)
}

// wrapCluster translates facade errors into API-facing domain errors.
// action reads like "Pod creation" so messages come out as
// "Pod creation failed: <reason>".
func wrapCluster(err error, action string) *Error {
	if errors.Is(err, cluster.ErrUnavailable) {
		return NewError(http.StatusServiceUnavailable, "K8s not available")
	}
	var transient *cluster.TransientError
	if errors.As(err, &transient) {
		return NewError(http.StatusInternalServerError, "%s failed: %s", action, transient.Reason)
	}
	return NewError(http.StatusInternalServerError, "%s failed: %v", action, err)
}

// CreateSpec is the validated input to CreateAgent. The worker fields are
// set only by the swarm controller so the worker record and its entry in
// the coordinator's workers map land in one registry write.
type CreateSpec struct {
	Username        string
	Email           string
	Provider        string
	APIKey          string
	Model           string
	Persona         string
	TelegramToken   string
	TelegramChatID  string
	EnableWebchat   bool
	EnablePII       bool
	EnableShield    bool
	EnableAgentZero bool
	SwarmMode       bool
	TokenBudget     int

	IsWorker    bool
	Coordinator string
	WorkerTask  string
	TTLSeconds  int
}

// CreateResult reports a successful creation.
type CreateResult struct {
	Username     string
	WorkloadName string
	// WebchatURL is empty when web chat is disabled for the tenant.
	WebchatURL string
	Message    string
}

// ConfigPatch is the recognized subset of a config mutation. Nil fields are
// left untouched; anything else in the request body is ignored.
type ConfigPatch struct {
	Provider        *string
	APIKey          *string
	Model           *string
	TokenBudget     *int
	EnableAgentZero *bool
	SwarmMode       *bool
}

// AgentInfo is a tenant record merged with a live workload status read.
type AgentInfo struct {
	registry.Tenant
	Pod *cluster.WorkloadStatus `json:"pod"`
}

// Orchestrator composes and submits the cluster objects realizing one
// tenant, and keeps the tenant registry in step.
type Orchestrator struct {
	cluster  cluster.Client
	registry *registry.Registry
	settings config.Settings
}

// New wires an orchestrator over the given facade and registry.
func New(c cluster.Client, r *registry.Registry, s config.Settings) *Orchestrator {
	return &Orchestrator{cluster: c, registry: r, settings: s}
}

// admit enforces the registry preconditions for a create: capacity, unique
// username, and (for workers) a live non-worker coordinator. It runs twice,
// once before any cluster call and again inside the final write, so a race
// between two creates cannot overshoot the cap.
func (o *Orchestrator) admit(tenants map[string]*registry.Tenant, spec CreateSpec) error {
	if len(tenants) >= o.settings.MaxInstances {
		return NewError(http.StatusBadRequest, "Maximum %d instances reached", o.settings.MaxInstances)
	}
	if _, ok := tenants[spec.Username]; ok {
		return conflict(spec.Username)
	}
	if spec.IsWorker {
		coord, ok := tenants[spec.Coordinator]
		if !ok || coord.IsWorker {
			return NotFound(spec.Coordinator)
		}
	}
	return nil
}

// CreateAgent materializes one tenant. Steps, in order: bridge token,
// configuration bundle object, persona object, workload, endpoint, registry
// record. The first error aborts; nothing already created is rolled back.
func (o *Orchestrator) CreateAgent(ctx context.Context, spec CreateSpec) (*CreateResult, error) {
	username := spec.Username

	if err := o.registry.Update(func(tenants map[string]*registry.Tenant) error {
		return o.admit(tenants, spec)
	}); err != nil {
		return nil, err
	}

	bridgeToken, err := newBridgeToken()
	if err != nil {
		return nil, NewError(http.StatusInternalServerError, "%v", err)
	}

	bundleCM, err := buildBundleConfigMap(o.settings.Namespace, username, newBundle(spec, o.settings.Namespace, bridgeToken))
	if err != nil {
		return nil, NewError(http.StatusInternalServerError, "%v", err)
	}
	if err := o.createOrReplaceConfigMap(ctx, bundleCM); err != nil {
		return nil, wrapCluster(err, "ConfigMap creation")
	}

	personaCM := buildPersonaConfigMap(o.settings.Namespace, username, resolvePersona(o.settings.PersonaDir, spec.Persona))
	if err := o.createOrReplaceConfigMap(ctx, personaCM); err != nil {
		return nil, wrapCluster(err, "Soul ConfigMap creation")
	}

	if err := o.cluster.CreatePod(ctx, buildPod(o.settings.Namespace, o.settings.Image, spec)); err != nil {
		if errors.Is(err, cluster.ErrAlreadyExists) {
			// The registry said the name was free but the cluster
			// disagrees. Surface the conflict; the caller reconciles
			// by deleting the stale instance.
			return nil, conflict(username)
		}
		return nil, wrapCluster(err, "Pod creation")
	}

	if err := o.cluster.CreateService(ctx, buildService(o.settings.Namespace, username)); err != nil {
		if errors.Is(err, cluster.ErrAlreadyExists) {
			log.Info("endpoint already present, keeping it", "service", ServiceName(username))
		} else {
			return nil, wrapCluster(err, "Service creation")
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	record := &registry.Tenant{
		Username:         username,
		Email:            spec.Email,
		Persona:          spec.Persona,
		Provider:         spec.Provider,
		Model:            spec.Model,
		HasTelegram:      spec.TelegramToken != "",
		HasWebchat:       spec.EnableWebchat,
		PIIEnabled:       spec.EnablePII,
		ShieldEnabled:    spec.EnableShield,
		AgentZeroEnabled: spec.EnableAgentZero,
		SwarmMode:        spec.SwarmMode,
		TokenBudget:      spec.TokenBudget,
		WorkloadName:     WorkloadName(username),
		CreatedAt:        now,
		Status:           "starting",
		IsWorker:         spec.IsWorker,
		Coordinator:      spec.Coordinator,
	}

	if err := o.registry.Update(func(tenants map[string]*registry.Tenant) error {
		if err := o.admit(tenants, spec); err != nil {
			return err
		}
		tenants[username] = record
		if spec.IsWorker {
			coord := tenants[spec.Coordinator]
			if coord.Workers == nil {
				coord.Workers = map[string]registry.Worker{}
			}
			coord.Workers[username] = registry.Worker{
				Task:         spec.WorkerTask,
				Persona:      spec.Persona,
				WorkloadName: WorkloadName(username),
				SpawnedAt:    now,
				TTLSeconds:   spec.TTLSeconds,
				Status:       "starting",
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	log.Info("created agent", "user", username, "persona", spec.Persona, "workload", WorkloadName(username))

	result := &CreateResult{
		Username:     username,
		WorkloadName: WorkloadName(username),
		Message:      fmt.Sprintf("Agent '%s' is starting. It will be ready in a few seconds.", username),
	}
	if spec.EnableWebchat {
		result.WebchatURL = "/chat/" + username
	}
	return result, nil
}

// DeleteAgent removes a tenant's cluster objects and registry record. The
// workload deletion is the only one whose failure aborts; endpoint and
// configuration objects are cleaned best-effort. Workers of a coordinator
// are reaped first, each best-effort.
func (o *Orchestrator) DeleteAgent(ctx context.Context, username string) error {
	tenants, err := o.registry.Load()
	if err != nil {
		return NewError(http.StatusInternalServerError, "registry read failed: %v", err)
	}
	tenant, ok := tenants[username]
	if !ok {
		return NotFound(username)
	}

	for workerName := range tenant.Workers {
		if err := o.DeleteClusterObjects(ctx, workerName); err != nil {
			log.Error(err, "worker cleanup failed", "worker", workerName)
		}
	}

	if err := o.DeleteClusterObjects(ctx, username); err != nil {
		return err
	}

	if err := o.registry.Update(func(tenants map[string]*registry.Tenant) error {
		t, ok := tenants[username]
		if !ok {
			return NotFound(username)
		}
		for workerName := range t.Workers {
			delete(tenants, workerName)
		}
		if t.IsWorker {
			if coord, ok := tenants[t.Coordinator]; ok {
				delete(coord.Workers, username)
			}
		}
		delete(tenants, username)
		return nil
	}); err != nil {
		return err
	}

	log.Info("deleted agent", "user", username)
	return nil
}

// DeleteClusterObjects removes the workload, endpoint, and both
// configuration objects of a tenant. Missing objects are skipped, so the
// operation is idempotent. Only a workload deletion failure is surfaced;
// the rest is best-effort, matching the blast radius of a partial create.
func (o *Orchestrator) DeleteClusterObjects(ctx context.Context, username string) error {
	if err := o.cluster.DeletePod(ctx, WorkloadName(username)); err != nil && !errors.Is(err, cluster.ErrNotFound) {
		return wrapCluster(err, "Pod deletion")
	}
	if err := o.cluster.DeleteService(ctx, ServiceName(username)); err != nil && !errors.Is(err, cluster.ErrNotFound) {
		log.Info("endpoint cleanup failed", "user", username, "error", err.Error())
	}
	for _, name := range []string{BundleConfigMapName(username), PersonaConfigMapName(username)} {
		if err := o.cluster.DeleteConfigMap(ctx, name); err != nil && !errors.Is(err, cluster.ErrNotFound) {
			log.Info("configmap cleanup failed", "configmap", name, "error", err.Error())
		}
	}
	return nil
}

// RestartAgent deletes the workload and lets its always-restart policy
// bring it back with the current configuration bundle.
func (o *Orchestrator) RestartAgent(ctx context.Context, username string) error {
	tenants, err := o.registry.Load()
	if err != nil {
		return NewError(http.StatusInternalServerError, "registry read failed: %v", err)
	}
	if _, ok := tenants[username]; !ok {
		return NotFound(username)
	}

	if err := o.cluster.DeletePod(ctx, WorkloadName(username)); err != nil && !errors.Is(err, cluster.ErrNotFound) {
		return wrapCluster(err, "Pod deletion")
	}

	log.Info("restarting agent", "user", username)
	return nil
}

// ReadBundle fetches and decodes a tenant's live configuration bundle.
func (o *Orchestrator) ReadBundle(ctx context.Context, username string) (*ConfigBundle, error) {
	cm, err := o.cluster.GetConfigMap(ctx, BundleConfigMapName(username))
	if err != nil {
		if errors.Is(err, cluster.ErrNotFound) {
			return nil, NewError(http.StatusInternalServerError, "Agent '%s' has no configuration bundle", username)
		}
		return nil, wrapCluster(err, "ConfigMap read")
	}
	var bundle ConfigBundle
	if err := json.Unmarshal([]byte(cm.Data["config.json"]), &bundle); err != nil {
		return nil, NewError(http.StatusInternalServerError, "config bundle for '%s' is corrupt: %v", username, err)
	}
	return &bundle, nil
}

// PatchConfig applies the recognized fields of a config mutation to the
// live configuration bundle and mirrors the non-secret subset into the
// registry record. The bridge token is never rotated. Returns the names of
// the fields that changed.
func (o *Orchestrator) PatchConfig(ctx context.Context, username string, patch ConfigPatch) ([]string, error) {
	tenants, err := o.registry.Load()
	if err != nil {
		return nil, NewError(http.StatusInternalServerError, "registry read failed: %v", err)
	}
	if _, ok := tenants[username]; !ok {
		return nil, NotFound(username)
	}

	current, err := o.ReadBundle(ctx, username)
	if err != nil {
		return nil, err
	}
	bundle := *current

	changes := []string{}
	if patch.Provider != nil {
		bundle.Provider = *patch.Provider
		bundle.APIURL = EndpointFor(*patch.Provider)
		changes = append(changes, "llm_provider")
	}
	if patch.APIKey != nil {
		bundle.APIKey = *patch.APIKey
		changes = append(changes, "api_key")
	}
	if patch.Model != nil {
		bundle.Model = *patch.Model
		changes = append(changes, "model")
	}
	if patch.TokenBudget != nil {
		bundle.SeaZeroBudget = *patch.TokenBudget
		changes = append(changes, "token_budget")
	}
	if patch.EnableAgentZero != nil {
		bundle.SeaZeroEnabled = *patch.EnableAgentZero
		changes = append(changes, "enable_agent_zero")
	}
	if patch.SwarmMode != nil {
		bundle.SwarmMode = *patch.SwarmMode
		changes = append(changes, "swarm_mode")
	}
	if len(changes) == 0 {
		return changes, nil
	}

	updated, err := buildBundleConfigMap(o.settings.Namespace, username, bundle)
	if err != nil {
		return nil, NewError(http.StatusInternalServerError, "%v", err)
	}
	if err := o.cluster.ReplaceConfigMap(ctx, updated); err != nil {
		return nil, wrapCluster(err, "ConfigMap update")
	}

	if err := o.registry.Update(func(tenants map[string]*registry.Tenant) error {
		t, ok := tenants[username]
		if !ok {
			return NotFound(username)
		}
		if patch.Provider != nil {
			t.Provider = *patch.Provider
		}
		if patch.Model != nil {
			t.Model = *patch.Model
		}
		if patch.TokenBudget != nil {
			t.TokenBudget = *patch.TokenBudget
		}
		if patch.EnableAgentZero != nil {
			t.AgentZeroEnabled = *patch.EnableAgentZero
		}
		if patch.SwarmMode != nil {
			t.SwarmMode = *patch.SwarmMode
		}
		t.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		return nil
	}); err != nil {
		return nil, err
	}

	log.Info("patched config", "user", username, "changes", strings.Join(changes, ","))
	return changes, nil
}

// GetAgent returns one tenant merged with a live status read.
func (o *Orchestrator) GetAgent(ctx context.Context, username string) (*AgentInfo, error) {
	tenants, err := o.registry.Load()
	if err != nil {
		return nil, NewError(http.StatusInternalServerError, "registry read failed: %v", err)
	}
	tenant, ok := tenants[username]
	if !ok {
		return nil, NotFound(username)
	}

	st := o.LiveStatus(ctx, username)
	t := *tenant
	t.Status = DeriveStatus(st)
	return &AgentInfo{Tenant: t, Pod: st}, nil
}

// ListAgents returns all tenants, each with a derived live status, ordered
// by username.
func (o *Orchestrator) ListAgents(ctx context.Context) ([]registry.Tenant, error) {
	tenants, err := o.registry.Load()
	if err != nil {
		return nil, NewError(http.StatusInternalServerError, "registry read failed: %v", err)
	}

	names := make([]string, 0, len(tenants))
	for name := range tenants {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]registry.Tenant, 0, len(names))
	for _, name := range names {
		t := *tenants[name]
		t.Status = DeriveStatus(o.LiveStatus(ctx, name))
		out = append(out, t)
	}
	return out, nil
}

// MaxInstances reports the configured instance cap.
func (o *Orchestrator) MaxInstances() int { return o.settings.MaxInstances }

// LiveStatus reads the workload status, swallowing read errors: a tenant
// whose status cannot be read shows as "unknown" instead of failing the
// whole request.
func (o *Orchestrator) LiveStatus(ctx context.Context, username string) *cluster.WorkloadStatus {
	st, err := o.cluster.PodStatus(ctx, WorkloadName(username))
	if err != nil {
		return nil
	}
	return st
}

// DeriveStatus flattens a live status read into the single user-facing
// status string.
func DeriveStatus(st *cluster.WorkloadStatus) string {
	switch {
	case st == nil:
		return "unknown"
	case st.Ready && st.Phase == string(corev1.PodRunning):
		return "running"
	case st.Phase != "":
		return strings.ToLower(st.Phase)
	default:
		return "unknown"
	}
}

// createOrReplaceConfigMap creates a configuration object, replacing an
// orphan left behind by an earlier failed create for the same username.
func (o *Orchestrator) createOrReplaceConfigMap(ctx context.Context, cm *corev1.ConfigMap) error {
	err := o.cluster.CreateConfigMap(ctx, cm)
	if errors.Is(err, cluster.ErrAlreadyExists) {
		return o.cluster.ReplaceConfigMap(ctx, cm)
	}
	return err
}
