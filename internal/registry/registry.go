// Copyright Contributors to the SeaClaw Platform project

// Package registry persists the tenant records as a single JSON document,
// rewritten atomically on every mutation. The instance cap keeps the
// document small, so whole-document rewrites stay cheap.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Project records a repository a tenant asked its agent to clone.
type Project struct {
	RepoURL   string `json:"repo_url"`
	Branch    string `json:"branch"`
	Path      string `json:"path"`
	CreatedAt string `json:"created_at"`
}

// Worker records an ephemeral child tenant under its coordinator. The key
// in Tenant.Workers is the worker's full username.
type Worker struct {
	Task         string `json:"task"`
	Persona      string `json:"persona"`
	WorkloadName string `json:"workload_name"`
	SpawnedAt    string `json:"spawned_at"`
	TTLSeconds   int    `json:"ttl_seconds"`
	Status       string `json:"status"`
}

// Tenant is one registry record. Provider credentials and the bridge token
// live only in the tenant's configuration bundle, never here.
type Tenant struct {
	Username         string             `json:"username"`
	Email            string             `json:"email,omitempty"`
	Persona          string             `json:"persona"`
	Provider         string             `json:"llm_provider"`
	Model            string             `json:"model"`
	HasTelegram      bool               `json:"has_telegram"`
	HasWebchat       bool               `json:"has_webchat"`
	PIIEnabled       bool               `json:"enable_pii"`
	ShieldEnabled    bool               `json:"enable_shield"`
	AgentZeroEnabled bool               `json:"enable_agent_zero"`
	SwarmMode        bool               `json:"swarm_mode"`
	TokenBudget      int                `json:"token_budget"`
	WorkloadName     string             `json:"workload_name"`
	CreatedAt        string             `json:"created_at"`
	UpdatedAt        string             `json:"updated_at,omitempty"`
	Status           string             `json:"status"`
	Projects         map[string]Project `json:"projects,omitempty"`
	Workers          map[string]Worker  `json:"workers,omitempty"`
	IsWorker         bool               `json:"is_worker,omitempty"`
	Coordinator      string             `json:"coordinator,omitempty"`
}

// Registry is the file-backed tenant store. A single mutex serializes the
// read-modify-write cycle; callers must not hold it across network calls,
// which Update guarantees by construction since the callback only sees the
// in-memory document.
type Registry struct {
	path string
	mu   sync.Mutex
}

// New returns a registry backed by the document at path. The file is
// created on first save.
func New(path string) *Registry {
	return &Registry{path: path}
}

// Load returns the current document. A missing file is an empty registry.
func (r *Registry) Load() (map[string]*Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Update runs fn on the document under the lock and, when fn succeeds,
// persists the result atomically. An error from fn aborts the write and is
// returned unchanged.
func (r *Registry) Update(fn func(map[string]*Tenant) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return r.save(m)
}

func (r *Registry) load() (map[string]*Tenant, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return map[string]*Tenant{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	m := map[string]*Tenant{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	return m, nil
}

// save writes the whole document with write-temp-then-rename semantics so a
// crash mid-write never leaves a torn file behind.
func (r *Registry) save(m map[string]*Tenant) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".instances-*.json")
	if err != nil {
		return fmt.Errorf("creating temp registry: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing registry: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting registry mode: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}
