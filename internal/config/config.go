// Copyright Contributors to the SeaClaw Platform project

// Package config resolves the gateway's runtime settings from the
// environment. Every knob has a default so the gateway starts with no
// configuration at all (standalone development mode).
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultNamespace    = "seaclaw-platform"
	DefaultImage        = "seaclaw-instance:latest"
	DefaultMaxInstances = 5
	DefaultDataDir      = "/data/platform"
	DefaultLogLevel     = "info"
	DefaultListenAddr   = ":8090"
	DefaultPersonaDir   = "personas"
)

// Settings holds the resolved gateway configuration.
type Settings struct {
	// Namespace is the cluster namespace all tenant objects live in.
	Namespace string
	// Image is the container image used for tenant workloads.
	Image string
	// MaxInstances caps the tenant registry size, workers included.
	MaxInstances int
	// DataDir holds the registry document and the plan tracker database.
	DataDir string
	// LogLevel selects the log verbosity (debug, info, error).
	LogLevel string
	// ListenAddr is the HTTP bind address.
	ListenAddr string
	// PersonaDir is the directory persona documents are resolved from.
	PersonaDir string
}

// FromEnv reads the environment and returns Settings with defaults applied.
// A MAX_INSTANCES value that does not parse as a positive integer falls back
// to the default rather than failing startup.
func FromEnv() Settings {
	s := Settings{
		Namespace:    envOr("NAMESPACE", DefaultNamespace),
		Image:        envOr("SEACLAW_IMAGE", DefaultImage),
		MaxInstances: DefaultMaxInstances,
		DataDir:      envOr("DATA_DIR", DefaultDataDir),
		LogLevel:     envOr("LOG_LEVEL", DefaultLogLevel),
		ListenAddr:   envOr("LISTEN_ADDR", DefaultListenAddr),
		PersonaDir:   envOr("PERSONA_DIR", DefaultPersonaDir),
	}
	if v := os.Getenv("MAX_INSTANCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.MaxInstances = n
		}
	}
	return s
}

// RegistryPath is the on-disk location of the tenant registry document.
func (s Settings) RegistryPath() string {
	return filepath.Join(s.DataDir, "instances.json")
}

// PlanStorePath is the on-disk location of the plan tracker database.
func (s Settings) PlanStorePath() string {
	return filepath.Join(s.DataDir, "platform_tasks.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
