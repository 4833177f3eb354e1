// Copyright Contributors to the SeaClaw Platform project

// Package types holds the wire shapes of the gateway API. Requests carry
// validation tags; responses are shaped here so handlers stay thin.
package types

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// usernamePattern is the tenant naming rule. Workers share it: a worker's
// full username (coordinator + "-" + id) must also fit.
var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]{2,32}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidUsername reports whether s satisfies the tenant naming rule.
func ValidUsername(s string) bool { return usernamePattern.MatchString(s) }

// fieldMessages translates a failed constraint into the user-visible error
// string, keyed by "<field>.<tag>".
var fieldMessages = map[string]string{
	"Username.username":  "username must be 2-32 characters of [a-z0-9_-]",
	"Username.required":  "username is required",
	"APIKey.required":    "api_key is required",
	"APIKey.min":         "api_key is too short",
	"Email.email":        "email is not valid",
	"TokenBudget.min":    "token_budget must be between 1000 and 1000000",
	"TokenBudget.max":    "token_budget must be between 1000 and 1000000",
	"Message.required":   "message is required",
	"Message.min":        "message is required",
	"Message.max":        "message exceeds 8192 characters",
	"RepoURL.required":   "repo_url is required",
	"RepoURL.url":        "repo_url is not a valid URL",
	"Task.required":      "task is required",
	"TTLSeconds.min":     "ttl_seconds must be between 30 and 3600",
	"TTLSeconds.max":     "ttl_seconds must be between 30 and 3600",
	"FromAgent.required": "from_agent is required",
	"FromAgent.username": "from_agent must be 2-32 characters of [a-z0-9_-]",
	"Status.oneof":       "status must be one of todo, in_progress, done, blocked",
	"Provider.min":       "llm_provider must not be empty",
	"Model.min":          "model must not be empty",
}

// Validate runs the struct tags and flattens the first violation into a
// plain error message.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag())
}

// CreateAgentRequest is the sign-up payload. The capability booleans
// default to enabled, so they decode through pointers; nil means "use the
// default".
type CreateAgentRequest struct {
	Username        string `json:"username" validate:"required,username"`
	Email           string `json:"email" validate:"omitempty,email"`
	APIKey          string `json:"api_key" validate:"required,min=5"`
	Provider        string `json:"llm_provider"`
	Model           string `json:"model"`
	Persona         string `json:"persona"`
	TelegramToken   string `json:"telegram_token"`
	TelegramChatID  string `json:"telegram_chat_id"`
	EnableWebchat   *bool  `json:"enable_webchat"`
	EnablePII       *bool  `json:"enable_pii"`
	EnableShield    *bool  `json:"enable_shield"`
	EnableAgentZero *bool  `json:"enable_agent_zero"`
	SwarmMode       bool   `json:"swarm_mode"`
	TokenBudget     int    `json:"token_budget" validate:"omitempty,min=1000,max=1000000"`
}

// Defaults applied to a CreateAgentRequest before validation.
const (
	DefaultProvider    = "openrouter"
	DefaultModel       = "qwen/qwen-2.5-72b-instruct"
	DefaultPersona     = "alex"
	DefaultTokenBudget = 100000
)

// ApplyDefaults fills unset fields with the platform defaults.
func (r *CreateAgentRequest) ApplyDefaults() {
	if r.Provider == "" {
		r.Provider = DefaultProvider
	}
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.Persona == "" {
		r.Persona = DefaultPersona
	}
	if r.TokenBudget == 0 {
		r.TokenBudget = DefaultTokenBudget
	}
	if r.EnableWebchat == nil {
		r.EnableWebchat = boolPtr(true)
	}
	if r.EnablePII == nil {
		r.EnablePII = boolPtr(true)
	}
	if r.EnableShield == nil {
		r.EnableShield = boolPtr(true)
	}
	if r.EnableAgentZero == nil {
		r.EnableAgentZero = boolPtr(true)
	}
}

func boolPtr(b bool) *bool { return &b }

// UpdateConfigRequest is a partial config mutation. Nil means "leave as
// is"; unrecognized body fields are ignored for forward compatibility.
type UpdateConfigRequest struct {
	Provider        *string `json:"llm_provider" validate:"omitempty,min=1"`
	APIKey          *string `json:"api_key" validate:"omitempty,min=5"`
	Model           *string `json:"model" validate:"omitempty,min=1"`
	TokenBudget     *int    `json:"token_budget" validate:"omitempty,min=1000,max=1000000"`
	EnableAgentZero *bool   `json:"enable_agent_zero"`
	SwarmMode       *bool   `json:"swarm_mode"`
}

// ChatRequest is one relayed message.
type ChatRequest struct {
	Message string `json:"message" validate:"required,min=1,max=8192"`
}

// ProjectRequest asks the agent to clone a repository into its workspace.
type ProjectRequest struct {
	RepoURL     string `json:"repo_url" validate:"required,url"`
	Branch      string `json:"branch"`
	ProjectName string `json:"project_name"`
}

// WorkerRequest spawns one ephemeral worker under a coordinator.
type WorkerRequest struct {
	Task       string `json:"task" validate:"required"`
	WorkerName string `json:"worker_name"`
	Persona    string `json:"persona"`
	TTLSeconds int    `json:"ttl_seconds" validate:"omitempty,min=30,max=3600"`
}

// DefaultWorkerTTL is recorded on workers that do not declare one.
const DefaultWorkerTTL = 600

// RelayRequest forwards a message to a coordinator on behalf of a worker.
type RelayRequest struct {
	FromAgent string `json:"from_agent" validate:"required,username"`
	Message   string `json:"message" validate:"required,min=1,max=8192"`
}

// PlanTaskPatch mutates a plan task. Only status and notes are writable;
// anything else in the body is rejected, not ignored, because this API is
// the operators' audit surface.
type PlanTaskPatch struct {
	Status *string `json:"status" validate:"omitempty,oneof=todo in_progress done blocked"`
	Notes  *string `json:"notes"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateAgentResponse confirms a sign-up.
type CreateAgentResponse struct {
	Status       string `json:"status"`
	Username     string `json:"username"`
	WorkloadName string `json:"workload_name"`
	WebchatURL   string `json:"webchat_url,omitempty"`
	Message      string `json:"message"`
}

// SpawnWorkerResponse confirms a worker spawn.
type SpawnWorkerResponse struct {
	Status         string `json:"status"`
	WorkerUsername string `json:"worker_username"`
	WorkloadName   string `json:"workload_name"`
	Coordinator    string `json:"coordinator"`
	Task           string `json:"task"`
}
