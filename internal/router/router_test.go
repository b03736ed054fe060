package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrics-monitor/internal/auth"
	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/endpoints"
	"metrics-monitor/internal/repository"
	"metrics-monitor/internal/util"
)

func newTestRouter(t *testing.T, requireAuth bool) (http.Handler, *auth.Manager) {
	t.Helper()
	store := repository.NewSQLiteStoreWithConfig(repository.StoreConfig{
		Path:        filepath.Join(t.TempDir(), "metrics.db"),
		OpenTimeout: 2 * time.Second,
		LockTimeout: 5 * time.Second,
		Clock:       clockwork.NewFakeClockAt(time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	manager, err := auth.NewManager(auth.Config{
		Secret: "router-test",
		Users:  []auth.User{{Username: "ops", PasswordHash: hash, Role: "admin"}},
	})
	require.NoError(t, err)

	r, err := NewRouter(Dependencies{
		Store:       store,
		Auth:        manager,
		RequireAuth: requireAuth,
		Logger:      &util.MetricsLogger{},
	})
	require.NoError(t, err)

	r.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	})
	return r, manager
}

func serve(h http.Handler, method, target string, body []byte, token string) (*httptest.ResponseRecorder, endpoints.APIResponse) {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp endpoints.APIResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	return rr, resp
}

func TestNewRouterRequiresAuthenticator(t *testing.T) {
	_, err := NewRouter(Dependencies{Store: repository.NewSQLiteStore("unused.db"), RequireAuth: true})
	assert.Error(t, err)

	_, err = NewRouter(Dependencies{})
	assert.Error(t, err)
}

func TestCatalogRoutes(t *testing.T) {
	r, _ := newTestRouter(t, true)

	rr, resp := serve(r, http.MethodGet, "/api/devices", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Status)

	var devices []domain.Device
	raw, _ := json.Marshal(resp.Value)
	require.NoError(t, json.Unmarshal(raw, &devices))
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, domain.DeviceSystem)
	assert.Contains(t, names, domain.DeviceStockAPI)

	rr, _ = serve(r, http.MethodGet, "/api/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = serve(r, http.MethodGet, "/does-not-exist", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIngestRequiresToken(t *testing.T) {
	r, manager := newTestRouter(t, true)
	body := []byte(`{"timestamp":"2024-03-06 10:00:00","cpu_percent":33}`)

	rr, resp := serve(r, http.MethodPost, "/api/ingest/system", body, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, endpoints.API_UNAUTHORIZED, resp.ErrorCode)

	rr, resp = serve(r, http.MethodPost, "/api/ingest/system", body, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, resp.Error, auth.ErrInvalidToken.Error())

	// token obtained through /login
	rr, resp = serve(r, http.MethodPost, "/login", []byte(`{"username":"ops","password":"s3cret"}`), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var login endpoints.LoginResponse
	raw, _ := json.Marshal(resp.Value)
	require.NoError(t, json.Unmarshal(raw, &login))

	rr, resp = serve(r, http.MethodPost, "/api/ingest/system", body, login.Token)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Status)

	// a token minted directly works too
	token, err := manager.GenerateToken("ops", "admin")
	require.NoError(t, err)
	rr, _ = serve(r, http.MethodPost, "/api/ingest/stocks", []byte(`{"timestamp":"2024-03-06 10:00:00","stocks":{"AAPL":{"price":190}}}`), token)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, resp = serve(r, http.MethodGet, "/api/device/PC/metric/CPU%20Usage/history?start_time=2024-03-06&end_time=2024-03-07", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var points []domain.Point
	raw, _ = json.Marshal(resp.Value)
	require.NoError(t, json.Unmarshal(raw, &points))
	require.Len(t, points, 1)
	assert.Equal(t, 33.0, points[0].Value)

	rr, resp = serve(r, http.MethodGet, "/api/symbols", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []interface{}{"AAPL"}, resp.Value)
}

func TestStockSymbolCaseRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t, false)

	body := []byte(`{"timestamp":"2024-03-06 10:00:00","stocks":{"aapl":{"price":190.5,"volume":10}}}`)
	rr, _ := serve(r, http.MethodPost, "/api/ingest/stocks", body, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr, resp := serve(r, http.MethodGet, "/api/history/stock/aapl", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rows []domain.SnapshotRow
	raw, _ := json.Marshal(resp.Value)
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 190.5, rows[0].Values["price"])

	// the read must not create a differently cased device
	_, resp = serve(r, http.MethodGet, "/api/symbols", nil, "")
	assert.Equal(t, []interface{}{"aapl"}, resp.Value)
}

func TestIngestOpenWhenAuthDisabled(t *testing.T) {
	r, _ := newTestRouter(t, false)

	rr, _ := serve(r, http.MethodPost, "/api/ingest/system", []byte(`{"cpu_percent":10}`), "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLiveRouteWithoutCollector(t *testing.T) {
	r, _ := newTestRouter(t, true)

	rr, resp := serve(r, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, endpoints.LIVE_DATA_UNAVAILABLE, resp.ErrorCode)
}

func TestRecoveryMiddleware(t *testing.T) {
	r, _ := newTestRouter(t, true)

	rr, resp := serve(r, http.MethodGet, "/boom", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.False(t, resp.Status)
}

func TestServerWriteTimeoutOutlastsLockTimeout(t *testing.T) {
	server := NewServer(":0", http.NotFoundHandler(), WriteTimeoutFor(45*time.Second))
	assert.Greater(t, server.WriteTimeout, 45*time.Second)

	server = NewServer(":0", http.NotFoundHandler(), 0)
	assert.Greater(t, server.WriteTimeout, repository.DefaultLockTimeout)
}

func TestRunStopsOnCancel(t *testing.T) {
	server := NewServer("127.0.0.1:0", http.NotFoundHandler(), 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, server, &util.MetricsLogger{}) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
