// Copyright Contributors to the SeaClaw Platform project

package orchestrator

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// providerEndpoints maps an LLM provider name to its chat-completions URL.
// Unknown providers fall back to openrouter.
var providerEndpoints = map[string]string{
	"openrouter": "https://openrouter.ai/api/v1/chat/completions",
	"openai":     "https://api.openai.com/v1/chat/completions",
	"anthropic":  "https://api.anthropic.com/v1/messages",
	"google":     "https://generativelanguage.googleapis.com/v1beta/models",
	"ollama":     "http://localhost:11434/v1/chat/completions",
}

// EndpointFor returns the chat endpoint URL for a provider.
func EndpointFor(provider string) string {
	if url, ok := providerEndpoints[provider]; ok {
		return url
	}
	return providerEndpoints["openrouter"]
}

// ConfigBundle is the config.json document consumed by the agent runtime
// inside each workload. The bridge token is generated once at creation and
// survives every later patch; it is never returned to API clients.
type ConfigBundle struct {
	Provider       string  `json:"llm_provider"`
	APIKey         string  `json:"api_key"`
	APIURL         string  `json:"api_url"`
	Model          string  `json:"llm_model"`
	SystemPrompt   *string `json:"system_prompt"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	MaxToolRounds  int     `json:"max_tool_rounds"`
	PIICategories  int     `json:"pii_categories"`
	SeaZeroEnabled bool    `json:"seazero_enabled"`
	SeaZeroToken   string  `json:"seazero_token"`
	SeaZeroURL     string  `json:"seazero_agent_url"`
	SeaZeroBudget  int     `json:"seazero_budget"`
	SwarmMode      bool    `json:"swarm_mode"`
}

const (
	defaultMaxTokens     = 4096
	defaultTemperature   = 0.7
	defaultMaxToolRounds = 5

	// All PII categories enabled. Matches the runtime's bitmask.
	piiAllCategories = 31
)

// newBridgeToken returns 32 random bytes hex-encoded (64 characters).
func newBridgeToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating bridge token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// agentZeroURL is the shared privileged-runtime service inside the namespace.
func agentZeroURL(namespace string) string {
	return fmt.Sprintf("http://agent-zero-svc.%s.svc.cluster.local:8080", namespace)
}

// newBundle composes the configuration bundle for a fresh tenant.
func newBundle(spec CreateSpec, namespace, bridgeToken string) ConfigBundle {
	pii := 0
	if spec.EnablePII {
		pii = piiAllCategories
	}
	return ConfigBundle{
		Provider:       spec.Provider,
		APIKey:         spec.APIKey,
		APIURL:         EndpointFor(spec.Provider),
		Model:          spec.Model,
		SystemPrompt:   nil,
		MaxTokens:      defaultMaxTokens,
		Temperature:    defaultTemperature,
		MaxToolRounds:  defaultMaxToolRounds,
		PIICategories:  pii,
		SeaZeroEnabled: spec.EnableAgentZero,
		SeaZeroToken:   bridgeToken,
		SeaZeroURL:     agentZeroURL(namespace),
		SeaZeroBudget:  spec.TokenBudget,
		SwarmMode:      spec.SwarmMode,
	}
}
