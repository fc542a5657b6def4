package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach_engine/internal/campaign"
	"outreach_engine/internal/config"
	"outreach_engine/internal/engine"
	"outreach_engine/internal/logbus"
	"outreach_engine/internal/metrics"
	"outreach_engine/internal/model"
	"outreach_engine/internal/store/sqlite"
)

type testEnv struct {
	srv   *httptest.Server
	store *sqlite.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Cors.AllowOrigins = []string{"http://localhost:5173"}

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	bus := logbus.New(100)
	m := metrics.NewCollector()
	eng := engine.New(engine.Options{
		Store: store,
		Opener: campaign.OpenerFunc(func(context.Context) (campaign.Session, error) {
			return nil, errors.New("no browser in tests")
		}),
		Bus:      bus,
		Metrics:  m,
		Limits:   cfg.Limits,
		Settings: campaign.SettingsFromConfig(cfg),
	})
	srv := httptest.NewServer(New(Options{Cfg: cfg, Bus: bus, Store: store, Engine: eng, Metrics: m}).Handler())
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Close(ctx)
		_ = store.Close()
	})
	return &testEnv{srv: srv, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
}

func TestHealthReportsClosedStore(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	code, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, false, body["ok"])
}

func TestSubmitTaskAndPoll(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/v1/tasks/connect", map[string]any{
		"email": "me@example.com", "password": "pw", "budget": 4,
	})
	require.Equal(t, http.StatusAccepted, code, body)
	data := body["data"].(map[string]any)
	id := data["id"].(string)
	assert.Equal(t, "connect", data["kind"])
	assert.Equal(t, "running", data["status"])
	assert.NotContains(t, data["payload"], "password")

	require.Eventually(t, func() bool {
		task, err := env.store.GetTask(context.Background(), id)
		return err == nil && task.Status == model.TaskError
	}, 5*time.Second, 10*time.Millisecond)

	code, body = env.do(t, http.MethodGet, "/api/v1/tasks/get?id="+id, nil)
	require.Equal(t, http.StatusOK, code)
	task := body["data"].(map[string]any)
	assert.Contains(t, task["message"], "no browser in tests")

	code, body = env.do(t, http.MethodGet, "/api/v1/tasks?kind=connect", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)

	code, _ = env.do(t, http.MethodPost, "/api/v1/tasks/cancel", map[string]any{"id": id})
	assert.Equal(t, http.StatusConflict, code)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/v1/tasks/post", map[string]any{"email": "me@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, "/api/v1/tasks/post", map[string]any{"email": "a", "password": "b", "extra": 1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodGet, "/api/v1/tasks/post", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	code, _ = env.do(t, http.MethodGet, "/api/v1/tasks?kind=scrape", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodGet, "/api/v1/tasks/get?id=missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 20, data["budget"])
	assert.EqualValues(t, 2, data["perCategoryTarget"])
	assert.Len(t, data["categories"], 10)
}

func TestEmailSettingsMasksSecret(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/v1/settings/email", map[string]any{"enabled": true, "email": "ops@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := env.do(t, http.MethodPost, "/api/v1/settings/email", map[string]any{
		"enabled": true, "email": "ops@example.com", "authCode": "s3cret",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, maskedSecret, body["data"].(map[string]any)["authCode"])

	code, _ = env.do(t, http.MethodPost, "/api/v1/settings/email", map[string]any{"authCode": maskedSecret, "to": "boss@example.com"})
	require.Equal(t, http.StatusOK, code)

	stored, ok, err := env.store.GetEmailSettings(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s3cret", stored.AuthCode)
	assert.Equal(t, "boss@example.com", stored.To)
}

func TestSessionImport(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/v1/sessions", map[string]any{
		"account": "me@example.com", "cookie": "li_at=abc; JSESSIONID=\"ajax:1\"",
	})
	require.Equal(t, http.StatusOK, code)

	sess, ok, err := env.store.GetBrowserSession(context.Background(), "me@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, sess.Cookies, 2)
	assert.Equal(t, ".linkedin.com", sess.Cookies[0].Domain)

	code, body := env.do(t, http.MethodGet, "/api/v1/sessions?account=me@example.com", nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{"li_at", "JSESSIONID"}, data["cookies"])
	assert.Equal(t, true, data["live"])

	code, _ = env.do(t, http.MethodDelete, "/api/v1/sessions?account=me@example.com", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, http.MethodGet, "/api/v1/sessions?account=me@example.com", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/v1/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/engine/state", nil)

	resp, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), `outreach_http_requests_total{method="GET",path="/api/v1/engine/state",status="200"} 1`)
}

func TestCookieDomain(t *testing.T) {
	d, err := cookieDomain("https://www.linkedin.com/login")
	require.NoError(t, err)
	assert.Equal(t, ".linkedin.com", d)

	d, err = cookieDomain("http://localhost:8091/login")
	require.NoError(t, err)
	assert.Equal(t, "localhost", d)

	d, err = cookieDomain("http://127.0.0.1:8091/login")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", d)

	_, err = cookieDomain("::")
	assert.Error(t, err)
}
