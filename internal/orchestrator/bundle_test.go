// Copyright Contributors to the SeaClaw Platform project

package orchestrator

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
)

func TestEndpointFor(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     string
	}{
		{
			name:     "openrouter",
			provider: "openrouter",
			want:     "https://openrouter.ai/api/v1/chat/completions",
		},
		{
			name:     "openai",
			provider: "openai",
			want:     "https://api.openai.com/v1/chat/completions",
		},
		{
			name:     "anthropic",
			provider: "anthropic",
			want:     "https://api.anthropic.com/v1/messages",
		},
		{
			name:     "google",
			provider: "google",
			want:     "https://generativelanguage.googleapis.com/v1beta/models",
		},
		{
			name:     "ollama",
			provider: "ollama",
			want:     "http://localhost:11434/v1/chat/completions",
		},
		{
			name:     "unknown falls back to openrouter",
			provider: "acme-llm",
			want:     "https://openrouter.ai/api/v1/chat/completions",
		},
		{
			name:     "empty falls back to openrouter",
			provider: "",
			want:     "https://openrouter.ai/api/v1/chat/completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EndpointFor(tt.provider)
			if got != tt.want {
				t.Errorf("EndpointFor(%q) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestNewBridgeToken(t *testing.T) {
	token, err := newBridgeToken()
	if err != nil {
		t.Fatalf("newBridgeToken() error = %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}
	if _, err := hex.DecodeString(token); err != nil {
		t.Errorf("token %q is not hex: %v", token, err)
	}

	other, err := newBridgeToken()
	if err != nil {
		t.Fatalf("newBridgeToken() error = %v", err)
	}
	if token == other {
		t.Error("two bridge tokens are identical")
	}
}

func TestNewBundle(t *testing.T) {
	spec := CreateSpec{
		Username:        "alec",
		Provider:        "anthropic",
		APIKey:          "sk-ant-12345",
		Model:           "claude-sonnet",
		Persona:         "alex",
		EnablePII:       true,
		EnableAgentZero: true,
		SwarmMode:       true,
		TokenBudget:     50000,
	}
	bundle := newBundle(spec, "seaclaw-platform", "deadbeef")

	if bundle.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", bundle.Provider)
	}
	if bundle.APIURL != "https://api.anthropic.com/v1/messages" {
		t.Errorf("APIURL = %q", bundle.APIURL)
	}
	if bundle.Model != "claude-sonnet" {
		t.Errorf("Model = %q, want claude-sonnet", bundle.Model)
	}
	if bundle.SystemPrompt != nil {
		t.Errorf("SystemPrompt = %v, want nil", bundle.SystemPrompt)
	}
	if bundle.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096", bundle.MaxTokens)
	}
	if bundle.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", bundle.Temperature)
	}
	if bundle.MaxToolRounds != 5 {
		t.Errorf("MaxToolRounds = %d, want 5", bundle.MaxToolRounds)
	}
	if bundle.PIICategories != 31 {
		t.Errorf("PIICategories = %d, want 31", bundle.PIICategories)
	}
	if !bundle.SeaZeroEnabled {
		t.Error("SeaZeroEnabled = false, want true")
	}
	if bundle.SeaZeroToken != "deadbeef" {
		t.Errorf("SeaZeroToken = %q", bundle.SeaZeroToken)
	}
	if bundle.SeaZeroURL != "http://agent-zero-svc.seaclaw-platform.svc.cluster.local:8080" {
		t.Errorf("SeaZeroURL = %q", bundle.SeaZeroURL)
	}
	if bundle.SeaZeroBudget != 50000 {
		t.Errorf("SeaZeroBudget = %d, want 50000", bundle.SeaZeroBudget)
	}
	if !bundle.SwarmMode {
		t.Error("SwarmMode = false, want true")
	}
}

func TestNewBundlePIIDisabled(t *testing.T) {
	spec := CreateSpec{Username: "alec", Provider: "openrouter", EnablePII: false}
	bundle := newBundle(spec, "seaclaw-platform", "tok")
	if bundle.PIICategories != 0 {
		t.Errorf("PIICategories = %d, want 0", bundle.PIICategories)
	}
}

func TestBundleWireFormat(t *testing.T) {
	spec := CreateSpec{
		Username:    "alec",
		Provider:    "openrouter",
		APIKey:      "sk-test-1",
		Model:       "qwen/qwen-2.5-72b-instruct",
		EnablePII:   true,
		TokenBudget: 100000,
	}
	raw, err := json.Marshal(newBundle(spec, "ns", "tok"))
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}

	// The runtime reads exactly these keys out of config.json.
	for _, key := range []string{
		"llm_provider", "api_key", "api_url", "llm_model", "system_prompt",
		"max_tokens", "temperature", "max_tool_rounds", "pii_categories",
		"seazero_enabled", "seazero_token", "seazero_agent_url",
		"seazero_budget", "swarm_mode",
	} {
		if _, ok := m[key]; !ok {
			t.Errorf("bundle JSON missing key %q", key)
		}
	}
	if len(m) != 14 {
		t.Errorf("bundle JSON has %d keys, want 14", len(m))
	}
	if m["system_prompt"] != nil {
		t.Errorf("system_prompt = %v, want null", m["system_prompt"])
	}
}

func TestAgentZeroURL(t *testing.T) {
	got := agentZeroURL("tenant-ns")
	if !strings.Contains(got, "agent-zero-svc.tenant-ns.svc.cluster.local:8080") {
		t.Errorf("agentZeroURL = %q", got)
	}
}
