package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/procurement-agent/app"
	"github.com/upb/procurement-agent/auth"
	"github.com/upb/procurement-agent/config"
	"github.com/upb/procurement-agent/routes"
	"go.uber.org/zap/zaptest"
)

const (
	testSecret  = "test-secret"
	testCatalog = `[
  {"name": "UltraTech", "price": 45000},
  {"name": "BadRock", "price": 38000},
  {"name": "ACC", "price": 42000}
]`
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "mock_vendors.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o600))

	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RequestTimeout:  5 * time.Second,
		},
		Rules:          config.RulesConfig{Driver: config.RulesDriverFile, Path: filepath.Join(dir, "memory.json"), Init: true},
		Catalog:        config.CatalogConfig{Source: config.CatalogSourceFile, Path: catalogPath},
		Approvals:      config.ApprovalsConfig{Store: config.ApprovalsStoreMemory},
		CurrencySymbol: "₹",
		Intent:         config.IntentConfig{Provider: "openai", Model: "gpt-4o-mini", Timeout: 2 * time.Second},
		Auth:           config.AuthConfig{JWTSecret: testSecret, ApproverRole: "manager"},
		Observability:  config.ObservabilityConfig{LogLevel: "error", LogFormat: "json", MetricsEnabled: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	deps, err := app.NewDependencies(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(ctx) })

	ts := httptest.NewServer(routes.SetupRoutes(deps))
	t.Cleanup(ts.Close)
	return ts
}

func managerToken(t *testing.T, roles ...string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mgr-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: "manager@example.com",
		Roles: roles,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func call(t *testing.T, method, url, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

type decisionBody struct {
	Status          string   `json:"status"`
	OrderID         string   `json:"order_id"`
	SelectedVendor  string   `json:"selected_vendor"`
	Cost            int64    `json:"total_cost"`
	ApprovalLimit   int64    `json:"approval_limit"`
	Reason          string   `json:"reason"`
	RejectionReason string   `json:"rejection_reason"`
	BannedVendors   []string `json:"banned_vendors"`
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	t.Run("health check returns healthy", func(t *testing.T) {
		status, env := call(t, http.MethodGet, ts.URL+"/healthz", "", nil)
		assert.Equal(t, http.StatusOK, status)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(env.Data, &body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("readiness probes both stores", func(t *testing.T) {
		status, env := call(t, http.MethodGet, ts.URL+"/readyz", "", nil)
		assert.Equal(t, http.StatusOK, status)

		var body struct {
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &body))
		assert.Equal(t, map[string]string{"rule_store": "healthy", "approvals_store": "healthy"}, body.Checks)
	})

	t.Run("metrics exposition", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestProcurementScenarios(t *testing.T) {
	ts := newTestServer(t, testConfig(t))
	api := ts.URL + "/api/v1"

	status, _ := call(t, http.MethodPut, api+"/sites/Pune/rules", "", map[string]interface{}{
		"approval_limit": 40000,
		"banned_vendors": []string{"BadRock"},
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, http.MethodPut, api+"/sites/Mumbai/rules", "", map[string]interface{}{
		"approval_limit": 50000,
		"banned_vendors": []string{"UltraTech"},
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, http.MethodPut, api+"/sites/Delhi/rules", "", map[string]interface{}{
		"approval_limit": 100000,
		"banned_vendors": []string{"UltraTech", "BadRock", "ACC"},
	})
	require.Equal(t, http.StatusOK, status)

	t.Run("over the limit awaits approval", func(t *testing.T) {
		status, env := call(t, http.MethodPost, api+"/orders", "", map[string]interface{}{
			"site": "Pune", "item": "cement", "quantity": 100,
		})
		assert.Equal(t, http.StatusAccepted, status)

		var d decisionBody
		require.NoError(t, json.Unmarshal(env.Data, &d))
		assert.Equal(t, "AWAITING_APPROVAL", d.Status)
		assert.Equal(t, "UltraTech", d.SelectedVendor)
		assert.Equal(t, int64(45000), d.Cost)
		assert.Equal(t, int64(40000), d.ApprovalLimit)
		assert.Equal(t, "Cost ₹45,000 exceeds site approval limit of ₹40,000", d.Reason)
		assert.NotEmpty(t, d.OrderID)
	})

	t.Run("within the limit is approved", func(t *testing.T) {
		status, env := call(t, http.MethodPost, api+"/orders", "", map[string]interface{}{
			"site": "Mumbai", "item": "cement", "quantity": 50,
		})
		assert.Equal(t, http.StatusOK, status)

		var d decisionBody
		require.NoError(t, json.Unmarshal(env.Data, &d))
		assert.Equal(t, "APPROVED", d.Status)
		assert.Equal(t, "BadRock", d.SelectedVendor)
		assert.Equal(t, "Cost ₹38,000 is within approval limit of ₹50,000", d.Reason)
	})

	t.Run("all vendors banned is rejected", func(t *testing.T) {
		status, env := call(t, http.MethodPost, api+"/orders", "", map[string]interface{}{
			"site": "Delhi", "item": "cement", "quantity": 10,
		})
		assert.Equal(t, http.StatusOK, status)

		var d decisionBody
		require.NoError(t, json.Unmarshal(env.Data, &d))
		assert.Equal(t, "REJECTED", d.Status)
		assert.Equal(t, "all vendors banned", d.Reason)
		assert.Equal(t, []string{"UltraTech", "BadRock", "ACC"}, d.BannedVendors)
	})

	t.Run("unknown site is an error decision", func(t *testing.T) {
		status, env := call(t, http.MethodPost, api+"/orders", "", map[string]interface{}{
			"site": "Chennai", "item": "cement", "quantity": 10,
		})
		assert.Equal(t, http.StatusOK, status)

		var d decisionBody
		require.NoError(t, json.Unmarshal(env.Data, &d))
		assert.Equal(t, "ERROR", d.Status)
		assert.Contains(t, d.Reason, "Chennai")
	})

	t.Run("rules read back", func(t *testing.T) {
		status, env := call(t, http.MethodGet, api+"/sites/Pune/rules", "", nil)
		assert.Equal(t, http.StatusOK, status)

		var rules struct {
			ApprovalLimit int64    `json:"approval_limit"`
			BannedVendors []string `json:"banned_vendors"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &rules))
		assert.Equal(t, int64(40000), rules.ApprovalLimit)
		assert.Equal(t, []string{"BadRock"}, rules.BannedVendors)

		status, _ = call(t, http.MethodGet, api+"/sites/Chennai/rules", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestApprovalResolution(t *testing.T) {
	ts := newTestServer(t, testConfig(t))
	api := ts.URL + "/api/v1"

	status, _ := call(t, http.MethodPut, api+"/sites/Pune/rules", "", map[string]interface{}{
		"approval_limit": 40000,
		"banned_vendors": []string{"BadRock"},
	})
	require.Equal(t, http.StatusOK, status)

	hold := func(t *testing.T) string {
		status, env := call(t, http.MethodPost, api+"/orders", "", map[string]interface{}{
			"site": "Pune", "item": "cement", "quantity": 100,
		})
		require.Equal(t, http.StatusAccepted, status)
		var d decisionBody
		require.NoError(t, json.Unmarshal(env.Data, &d))
		return d.OrderID
	}

	t.Run("approve requires a token", func(t *testing.T) {
		id := hold(t)
		status, _ := call(t, http.MethodPost, api+"/approvals/"+id+"/approve", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("approve requires the approver role", func(t *testing.T) {
		id := hold(t)
		status, _ := call(t, http.MethodPost, api+"/approvals/"+id+"/approve", managerToken(t, "viewer"), nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("manager approves a held order once", func(t *testing.T) {
		id := hold(t)
		token := managerToken(t, "manager")

		status, env := call(t, http.MethodPost, api+"/approvals/"+id+"/approve", token, nil)
		require.Equal(t, http.StatusOK, status)

		var resolved struct {
			Status     string       `json:"status"`
			ResolvedBy string       `json:"resolved_by"`
			Decision   decisionBody `json:"decision"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &resolved))
		assert.Equal(t, "approved", resolved.Status)
		assert.Equal(t, "manager@example.com", resolved.ResolvedBy)
		assert.Equal(t, "APPROVED", resolved.Decision.Status)

		status, _ = call(t, http.MethodPost, api+"/approvals/"+id+"/reject", token, nil)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("manager rejects with the default reason", func(t *testing.T) {
		id := hold(t)

		status, env := call(t, http.MethodPost, api+"/approvals/"+id+"/reject", managerToken(t, "manager"), nil)
		require.Equal(t, http.StatusOK, status)

		var resolved struct {
			Decision decisionBody `json:"decision"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &resolved))
		assert.Equal(t, "REJECTED", resolved.Decision.Status)
		assert.Equal(t, "Rejected by manager", resolved.Decision.RejectionReason)
	})

	t.Run("pending list shrinks as orders resolve", func(t *testing.T) {
		status, env := call(t, http.MethodGet, api+"/approvals", "", nil)
		require.Equal(t, http.StatusOK, status)

		var pending []map[string]interface{}
		require.NoError(t, json.Unmarshal(env.Data, &pending))
		// two held orders were never resolved by the auth failure cases
		assert.Len(t, pending, 2)
	})
}

func TestMessageEndpoint(t *testing.T) {
	t.Run("unavailable without a language model", func(t *testing.T) {
		ts := newTestServer(t, testConfig(t))
		status, _ := call(t, http.MethodPost, ts.URL+"/api/v1/messages", "", map[string]string{
			"message": "Set rules for Pune",
		})
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("extracted intent is dispatched", func(t *testing.T) {
		replies := []string{
			`{"intent":"set_rules","site":"Pune","approval_limit":40000,"banned_vendors":["BadRock"]}`,
			`{"intent":"procurement","site":"Pune","item":"cement","quantity":100}`,
		}
		n := 0
		llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":    "chatcmpl-1",
				"model": "gpt-4o-mini",
				"choices": []map[string]interface{}{
					{"index": 0, "message": map[string]string{"role": "assistant", "content": replies[n]}},
				},
			})
			n++
		}))
		defer llm.Close()

		cfg := testConfig(t)
		cfg.Intent.APIKey = "sk-test"
		cfg.Intent.BaseURL = llm.URL
		ts := newTestServer(t, cfg)

		status, env := post(t, ts.URL+"/api/v1/messages", `{"message":"Pune may spend 40k, never BadRock"}`)
		require.Equal(t, http.StatusOK, status)
		var rulesReply struct {
			Intent string `json:"intent"`
			Rules  struct {
				Status string `json:"status"`
			} `json:"rules"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &rulesReply))
		assert.Equal(t, "set_rules", rulesReply.Intent)
		assert.Equal(t, "RULES_STORED", rulesReply.Rules.Status)

		status, env = post(t, ts.URL+"/api/v1/messages", `{"message":"Order 100 bags of cement for Pune"}`)
		require.Equal(t, http.StatusAccepted, status)
		var orderReply struct {
			Decision decisionBody `json:"decision"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &orderReply))
		assert.Equal(t, "AWAITING_APPROVAL", orderReply.Decision.Status)
		assert.Equal(t, "UltraTech", orderReply.Decision.SelectedVendor)
	})
}

func post(t *testing.T, url, body string) (int, envelope) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestRouting(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	t.Run("unknown endpoint", func(t *testing.T) {
		status, env := call(t, http.MethodGet, ts.URL+"/api/v1/unknown", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "endpoint not found", env.Error)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/orders", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestNewServer(t *testing.T) {
	cfg := testConfig(t)
	srv := newServer(cfg, http.NotFoundHandler())

	assert.Equal(t, "127.0.0.1:8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.Equal(t, 5*time.Second, srv.WriteTimeout)
}
