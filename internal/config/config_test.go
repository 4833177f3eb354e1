// Copyright Contributors to the SeaClaw Platform project

package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"NAMESPACE", "SEACLAW_IMAGE", "MAX_INSTANCES", "DATA_DIR", "LOG_LEVEL", "LISTEN_ADDR", "PERSONA_DIR"} {
		t.Setenv(key, "")
	}

	s := FromEnv()
	if s.Namespace != DefaultNamespace {
		t.Errorf("Namespace = %q, want %q", s.Namespace, DefaultNamespace)
	}
	if s.Image != DefaultImage {
		t.Errorf("Image = %q, want %q", s.Image, DefaultImage)
	}
	if s.MaxInstances != DefaultMaxInstances {
		t.Errorf("MaxInstances = %d, want %d", s.MaxInstances, DefaultMaxInstances)
	}
	if s.DataDir != DefaultDataDir {
		t.Errorf("DataDir = %q, want %q", s.DataDir, DefaultDataDir)
	}
	if s.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", s.ListenAddr, DefaultListenAddr)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NAMESPACE", "agents-prod")
	t.Setenv("SEACLAW_IMAGE", "registry.local/seaclaw:v2")
	t.Setenv("MAX_INSTANCES", "12")
	t.Setenv("DATA_DIR", "/var/lib/platform")

	s := FromEnv()
	if s.Namespace != "agents-prod" {
		t.Errorf("Namespace = %q, want agents-prod", s.Namespace)
	}
	if s.Image != "registry.local/seaclaw:v2" {
		t.Errorf("Image = %q", s.Image)
	}
	if s.MaxInstances != 12 {
		t.Errorf("MaxInstances = %d, want 12", s.MaxInstances)
	}
	if got, want := s.RegistryPath(), "/var/lib/platform/instances.json"; got != want {
		t.Errorf("RegistryPath() = %q, want %q", got, want)
	}
	if got, want := s.PlanStorePath(), "/var/lib/platform/platform_tasks.db"; got != want {
		t.Errorf("PlanStorePath() = %q, want %q", got, want)
	}
}

func TestFromEnvBadMaxInstances(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not a number", value: "many"},
		{name: "zero", value: "0"},
		{name: "negative", value: "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MAX_INSTANCES", tt.value)
			s := FromEnv()
			if s.MaxInstances != DefaultMaxInstances {
				t.Errorf("MaxInstances = %d, want default %d", s.MaxInstances, DefaultMaxInstances)
			}
		})
	}
}
