// Copyright Contributors to the SeaClaw Platform project

// Package relay forwards chat traffic from external clients into tenant
// workloads. The workload endpoint is resolved by its in-cluster DNS name;
// responses come back verbatim, and transport failures are translated into
// typed errors carrying the HTTP status the API surface answers with.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seaclaw/platform/internal/orchestrator"
)

// chatTimeout is the absolute bound on one relayed exchange. Agent turns
// involving tool use are slow; anything past this is declared dead.
const chatTimeout = 120 * time.Second

// Error carries the HTTP status the API surface answers with. For non-2xx
// workload responses the status is the workload's own.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// ErrNoTaskAPI reports a workload that does not expose /api/tasks. Callers
// treat it as "no tasks", not as a failure.
var ErrNoTaskAPI = errors.New("agent runtime does not expose task tracking")

// Relay is a stateless forwarder. Safe for concurrent use.
type Relay struct {
	client  *http.Client
	resolve func(username string) string
}

// New returns a relay resolving tenants through cluster DNS.
func New(namespace string) *Relay {
	return NewWithResolver(func(username string) string {
		return fmt.Sprintf("http://%s.%s.svc.cluster.local:%d",
			orchestrator.ServiceName(username), namespace, orchestrator.AgentPort)
	})
}

// NewWithResolver returns a relay with a custom endpoint resolver. Tests
// point this at local listeners.
func NewWithResolver(resolve func(username string) string) *Relay {
	return &Relay{
		client:  &http.Client{Timeout: chatTimeout},
		resolve: resolve,
	}
}

// Send posts a chat message to the tenant's workload and returns the
// workload's JSON response verbatim.
func (r *Relay) Send(ctx context.Context, username, message string) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, &Error{Status: http.StatusInternalServerError, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.resolve(username)+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Status: http.StatusInternalServerError, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, translateTransport(username, err)
	}
	defer resp.Body.Close()

	return r.consume(username, resp)
}

// GetTasks fetches the workload's task list, optionally filtered by status.
// A 404 from the workload returns ErrNoTaskAPI.
func (r *Relay) GetTasks(ctx context.Context, username, status string) (json.RawMessage, error) {
	endpoint := r.resolve(username) + "/api/tasks"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Status: http.StatusInternalServerError, Message: err.Error()}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, translateTransport(username, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoTaskAPI
	}
	return r.consume(username, resp)
}

// consume reads the response body and applies the status translation: the
// workload's non-2xx statuses propagate with the body as the error payload.
func (r *Relay) consume(username string, resp *http.Response) (json.RawMessage, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, translateTransport(username, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Agent error: %s", strings.TrimSpace(string(body))),
		}
	}

	if !json.Valid(body) {
		return nil, &Error{
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("Agent '%s' returned a malformed response", username),
		}
	}
	return json.RawMessage(body), nil
}

// translateTransport maps client errors: timeouts become 504, everything
// else (refused connection, DNS failure) becomes 503.
func translateTransport(username string, err error) *Error {
	var netErr net.Error
	timedOut := errors.As(err, &netErr) && netErr.Timeout()
	if timedOut || errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Status:  http.StatusGatewayTimeout,
			Message: fmt.Sprintf("Agent '%s' timed out (%ds)", username, int(chatTimeout.Seconds())),
		}
	}
	return &Error{
		Status:  http.StatusServiceUnavailable,
		Message: fmt.Sprintf("Agent '%s' is not reachable. Is the pod running?", username),
	}
}
