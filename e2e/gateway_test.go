// Copyright Contributors to the SeaClaw Platform project

package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var _ = Describe("Gateway API", func() {
	var s *stack

	BeforeEach(func() {
		s = newStack(5)
	})

	AfterEach(func() {
		s.close()
	})

	Describe("health", func() {
		It("reports ok with a timestamp", func() {
			status, body := s.do(http.MethodGet, "/health", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("ok"))
			Expect(body["timestamp"]).NotTo(BeEmpty())
		})
	})

	Describe("agent lifecycle", func() {
		It("creates an agent and serves it back", func() {
			By("signing up")
			status, body := s.do(http.MethodPost, "/api/v1/agents/create", createBody("alec"))
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("created"))
			Expect(body["username"]).To(Equal("alec"))
			Expect(body["workload_name"]).To(Equal("seaclaw-alec"))
			Expect(body["webchat_url"]).To(Equal("/chat/alec"))

			By("verifying the cluster objects exist")
			ctx := context.Background()
			_, err := s.clientset.CoreV1().Pods(testNamespace).Get(ctx, "seaclaw-alec", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.clientset.CoreV1().Services(testNamespace).Get(ctx, "seaclaw-alec-svc", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())

			By("reading the record back")
			status, body = s.do(http.MethodGet, "/api/v1/agents/alec", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["username"]).To(Equal("alec"))
			Expect(body["llm_provider"]).To(Equal("openrouter"))
			Expect(body["model"]).To(Equal("moonshotai/kimi-k2"))
			Expect(body["persona"]).To(Equal("alex"))
			Expect(body["token_budget"]).To(BeNumerically("==", 50000))

			By("checking exactly one tenant exists")
			status, body = s.do(http.MethodGet, "/api/v1/agents", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeNumerically("==", 1))
			Expect(body["max"]).To(BeNumerically("==", 5))
		})

		It("rejects a duplicate sign-up with 409", func() {
			status, _ := s.do(http.MethodPost, "/api/v1/agents/create", createBody("alec"))
			Expect(status).To(Equal(http.StatusOK))

			status, body := s.do(http.MethodPost, "/api/v1/agents/create", createBody("alec"))
			Expect(status).To(Equal(http.StatusConflict))
			Expect(body["error"]).To(ContainSubstring("already exists"))
		})

		It("rejects creation at capacity with 400", func() {
			small := newStack(1)
			defer small.close()

			status, _ := small.do(http.MethodPost, "/api/v1/agents/create", createBody("alec"))
			Expect(status).To(Equal(http.StatusOK))

			status, body := small.do(http.MethodPost, "/api/v1/agents/create", createBody("eva"))
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body["error"]).To(ContainSubstring("Maximum 1 instances reached"))
		})

		It("validates the sign-up payload", func() {
			bad := createBody("Alec!")
			status, body := s.do(http.MethodPost, "/api/v1/agents/create", bad)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body["error"]).To(ContainSubstring("username"))

			bad = createBody("alec")
			bad["api_key"] = "sk"
			status, _ = s.do(http.MethodPost, "/api/v1/agents/create", bad)
			Expect(status).To(Equal(http.StatusBadRequest))

			bad = createBody("alec")
			bad["token_budget"] = 999
			status, _ = s.do(http.MethodPost, "/api/v1/agents/create", bad)
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("deletes idempotently at the API", func() {
			s.do(http.MethodPost, "/api/v1/agents/create", createBody("alec"))

			status, body := s.do(http.MethodDelete, "/api/v1/agents/alec", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("deleted"))

			status, _ = s.do(http.MethodGet, "/api/v1/agents/alec", nil)
			Expect(status).To(Equal(http.StatusNotFound))

			// The second delete is a clean 404, not a 500.
			status, _ = s.do(http.MethodDelete, "/api/v1/agents/alec", nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("restarts by recycling the workload", func() {
			s.do(http.MethodPost, "/api/v1/agents/create", createBody("alec"))

			status, body := s.do(http.MethodPost, "/api/v1/agents/alec/restart", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("restarting"))

			// The endpoint object survives a restart.
			_, err := s.clientset.CoreV1().Services(testNamespace).Get(context.Background(), "seaclaw-alec-svc", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
		})

		It("answers 404 for unknown agents", func() {
			for _, probe := range []struct{ method, path string }{
				{http.MethodGet, "/api/v1/agents/ghost"},
				{http.MethodDelete, "/api/v1/agents/ghost"},
				{http.MethodPost, "/api/v1/agents/ghost/restart"},
			} {
				status, body := s.do(probe.method, probe.path, nil)
				Expect(status).To(Equal(http.StatusNotFound), probe.path)
				Expect(body["error"]).To(ContainSubstring("not found"))
			}
		})
	})

	Describe("config patch", func() {
		BeforeEach(func() {
			status, _ := s.do(http.MethodPost, "/api/v1/agents/create", createBody("alec"))
			Expect(status).To(Equal(http.StatusOK))
		})

		readBundle := func() map[string]any {
			GinkgoHelper()
			cm, err := s.clientset.CoreV1().ConfigMaps(testNamespace).Get(context.Background(), "seaclaw-config-alec", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			bundle := map[string]any{}
			Expect(json.Unmarshal([]byte(cm.Data["config.json"]), &bundle)).To(Succeed())
			return bundle
		}

		It("updates the bundle and mirrors the registry", func() {
			tokenBefore := readBundle()["seazero_token"]

			status, body := s.do(http.MethodPatch, "/api/v1/agents/alec/config", map[string]any{
				"model":        "x/y",
				"token_budget": 200000,
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("updated"))
			Expect(body["changes"]).To(ConsistOf("model", "token_budget"))

			bundle := readBundle()
			Expect(bundle["llm_model"]).To(Equal("x/y"))
			Expect(bundle["seazero_budget"]).To(BeNumerically("==", 200000))
			Expect(bundle["seazero_token"]).To(Equal(tokenBefore), "bridge token must not rotate on patch")

			status, record := s.do(http.MethodGet, "/api/v1/agents/alec", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(record["model"]).To(Equal("x/y"))
			Expect(record["token_budget"]).To(BeNumerically("==", 200000))
		})

		It("ignores unrecognized fields", func() {
			status, body := s.do(http.MethodPatch, "/api/v1/agents/alec/config", map[string]any{
				"model":    "x/y",
				"username": "mallory",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["changes"]).To(ConsistOf("model"))

			status, record := s.do(http.MethodGet, "/api/v1/agents/alec", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(record["username"]).To(Equal("alec"))
		})

		It("validates the budget range", func() {
			status, _ := s.do(http.MethodPatch, "/api/v1/agents/alec/config", map[string]any{"token_budget": 999})
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("chat relay", func() {
		BeforeEach(func() {
			status, _ := s.do(http.MethodPost, "/api/v1/agents/create", createBody("alec"))
			Expect(status).To(Equal(http.StatusOK))
		})

		It("forwards the workload response verbatim", func() {
			status, body := s.do(http.MethodPost, "/api/v1/agents/alec/chat", map[string]any{"message": "hello"})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["response"]).To(Equal("hello from the agent"))
			Expect(s.receivedMessage()).To(Equal("hello"))
		})

		It("enforces the message length bounds", func() {
			status, _ := s.do(http.MethodPost, "/api/v1/agents/alec/chat", map[string]any{"message": ""})
			Expect(status).To(Equal(http.StatusBadRequest))

			status, _ = s.do(http.MethodPost, "/api/v1/agents/alec/chat", map[string]any{"message": strings.Repeat("x", 8192)})
			Expect(status).To(Equal(http.StatusOK))

			status, _ = s.do(http.MethodPost, "/api/v1/agents/alec/chat", map[string]any{"message": strings.Repeat("x", 8193)})
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("answers 503 when the workload refuses connections", func() {
			s.markUnreachable("alec")
			status, body := s.do(http.MethodPost, "/api/v1/agents/alec/chat", map[string]any{"message": "hello"})
			Expect(status).To(Equal(http.StatusServiceUnavailable))
			Expect(body["error"]).To(ContainSubstring("not reachable"))
		})

		It("propagates workload error statuses", func() {
			s.setStubResponse(http.StatusTeapot, `{"error":"busy"}`)
			status, body := s.do(http.MethodPost, "/api/v1/agents/alec/chat", map[string]any{"message": "hello"})
			Expect(status).To(Equal(http.StatusTeapot))
			Expect(body["error"]).To(ContainSubstring("Agent error"))
		})

		It("answers 404 for an unknown tenant", func() {
			status, _ := s.do(http.MethodPost, "/api/v1/agents/ghost/chat", map[string]any{"message": "hello"})
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("projects and workspace", func() {
		BeforeEach(func() {
			status, _ := s.do(http.MethodPost, "/api/v1/agents/create", createBody("alec"))
			Expect(status).To(Equal(http.StatusOK))
		})

		It("relays a clone instruction and records the project", func() {
			status, body := s.do(http.MethodPost, "/api/v1/agents/alec/project", map[string]any{
				"repo_url": "https://github.com/acme/widgets.git",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("cloning"))
			Expect(body["project_name"]).To(Equal("widgets"))
			Expect(body["path"]).To(Equal("/workspace/widgets"))
			Expect(s.receivedMessage()).To(ContainSubstring("git clone -b main https://github.com/acme/widgets.git /workspace/widgets"))

			By("listing the workspace afterwards")
			status, body = s.do(http.MethodGet, "/api/v1/agents/alec/workspace", nil)
			Expect(status).To(Equal(http.StatusOK))
			projects, ok := body["projects"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(projects).To(HaveKey("widgets"))
		})

		It("records the project even when the agent response is unhelpful", func() {
			s.setStubResponse(http.StatusOK, `{"response":"I do not understand"}`)
			status, _ := s.do(http.MethodPost, "/api/v1/agents/alec/project", map[string]any{
				"repo_url": "https://github.com/acme/widgets",
				"branch":   "dev",
			})
			Expect(status).To(Equal(http.StatusOK))

			_, body := s.do(http.MethodGet, "/api/v1/agents/alec/workspace", nil)
			projects := body["projects"].(map[string]any)
			Expect(projects).To(HaveKey("widgets"))
			record := projects["widgets"].(map[string]any)
			Expect(record["branch"]).To(Equal("dev"))
		})

		It("rejects an unusable repo url", func() {
			status, _ := s.do(http.MethodPost, "/api/v1/agents/alec/project", map[string]any{"repo_url": "not a url"})
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("tolerates a workload without a task API", func() {
			status, body := s.do(http.MethodGet, "/api/v1/agents/alec/tasks", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["tasks"]).To(BeEmpty())
			Expect(body["note"]).To(ContainSubstring("does not expose task tracking"))
		})
	})

	Describe("worker swarm", func() {
		BeforeEach(func() {
			status, _ := s.do(http.MethodPost, "/api/v1/agents/create", createBody("alec"))
			Expect(status).To(Equal(http.StatusOK))
		})

		It("requires swarm mode, then spawns and lists workers", func() {
			By("rejecting a spawn while swarm mode is off")
			status, body := s.do(http.MethodPost, "/api/v1/agents/alec/workers", map[string]any{
				"task": "scan repo", "persona": "alex",
			})
			Expect(status).To(Equal(http.StatusForbidden))
			Expect(body["error"]).To(ContainSubstring("Swarm mode is not enabled"))

			By("enabling swarm mode via config patch")
			status, _ = s.do(http.MethodPatch, "/api/v1/agents/alec/config", map[string]any{"swarm_mode": true})
			Expect(status).To(Equal(http.StatusOK))

			By("spawning a worker")
			status, body = s.do(http.MethodPost, "/api/v1/agents/alec/workers", map[string]any{
				"task": "scan repo", "persona": "alex",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("spawning"))
			Expect(body["worker_username"]).To(MatchRegexp(`^alec-w\d+$`))

			By("listing exactly one worker")
			status, body = s.do(http.MethodGet, "/api/v1/agents/alec/workers", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["coordinator"]).To(Equal("alec"))
			Expect(body["count"]).To(BeNumerically("==", 1))
		})

		It("terminates a worker by short id", func() {
			s.do(http.MethodPatch, "/api/v1/agents/alec/config", map[string]any{"swarm_mode": true})
			status, _ := s.do(http.MethodPost, "/api/v1/agents/alec/workers", map[string]any{
				"task": "scan repo", "worker_name": "w9", "persona": "alex",
			})
			Expect(status).To(Equal(http.StatusOK))

			status, body := s.do(http.MethodDelete, "/api/v1/agents/alec/workers/w9", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("terminated"))

			_, body = s.do(http.MethodGet, "/api/v1/agents/alec/workers", nil)
			Expect(body["count"]).To(BeNumerically("==", 0))
		})

		It("authorizes relay by the workers map", func() {
			s.do(http.MethodPatch, "/api/v1/agents/alec/config", map[string]any{"swarm_mode": true})
			status, _ := s.do(http.MethodPost, "/api/v1/agents/alec/workers", map[string]any{
				"task": "scan repo", "worker_name": "w12345", "persona": "alex",
			})
			Expect(status).To(Equal(http.StatusOK))

			By("relaying from a current worker")
			status, body := s.do(http.MethodPost, "/api/v1/agents/alec/relay", map[string]any{
				"from_agent": "alec-w12345", "message": "done",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["to"]).To(Equal("alec"))
			Expect(body["from"]).To(Equal("alec-w12345"))
			Expect(body["response"]).NotTo(BeNil())

			By("rejecting an unrelated sender")
			status, body = s.do(http.MethodPost, "/api/v1/agents/alec/relay", map[string]any{
				"from_agent": "eve", "message": "hi",
			})
			Expect(status).To(Equal(http.StatusForbidden))
			Expect(body["error"]).To(ContainSubstring("not authorized"))
		})
	})

	Describe("platform plan tracker", func() {
		It("lists the seeded plan with filters", func() {
			status, body := s.do(http.MethodGet, "/api/v1/platform/tasks", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeNumerically(">", 0))

			status, body = s.do(http.MethodGet, "/api/v1/platform/tasks?phase=P1", nil)
			Expect(status).To(Equal(http.StatusOK))
			tasks := body["tasks"].([]any)
			for _, raw := range tasks {
				Expect(raw.(map[string]any)["phase"]).To(Equal("P1"))
			}

			status, body = s.do(http.MethodGet, "/api/v1/platform/tasks?status=done", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeNumerically("==", 0))
		})

		It("mutates status and notes only", func() {
			status, body := s.do(http.MethodPatch, "/api/v1/platform/tasks/P1-01", map[string]any{
				"status": "in_progress", "notes": "started",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("updated"))

			_, body = s.do(http.MethodGet, "/api/v1/platform/tasks?status=in_progress", nil)
			Expect(body["count"]).To(BeNumerically("==", 1))

			By("rejecting a body naming an immutable field")
			status, _ = s.do(http.MethodPatch, "/api/v1/platform/tasks/P1-01", map[string]any{
				"title": "rewritten",
			})
			Expect(status).To(Equal(http.StatusBadRequest))

			By("rejecting a patch of updated_at")
			status, _ = s.do(http.MethodPatch, "/api/v1/platform/tasks/P1-01", map[string]any{
				"updated_at": "2026-01-01T00:00:00Z",
			})
			Expect(status).To(Equal(http.StatusBadRequest))

			By("rejecting an unknown status value")
			status, _ = s.do(http.MethodPatch, "/api/v1/platform/tasks/P1-01", map[string]any{
				"status": "finished",
			})
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("answers 404 for an unknown task", func() {
			status, _ := s.do(http.MethodPatch, "/api/v1/platform/tasks/P9-99", map[string]any{"status": "done"})
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})
})
