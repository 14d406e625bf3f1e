package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"proxy-checker/internal/checker"
	"proxy-checker/internal/config"
	"proxy-checker/internal/directory"
	"proxy-checker/internal/domain"
	"proxy-checker/internal/store"
	"proxy-checker/internal/target"
	"proxy-checker/internal/worker"
)

// Mock Implementations

type MockMetricsCollector struct {
	mu            sync.Mutex
	Checks        map[domain.RecordID]int
	TargetProbes  map[string]int
	Batches       []domain.BatchReport
	Coalesced     int
	DirectorySize int
}

func NewMockMetricsCollector() *MockMetricsCollector {
	return &MockMetricsCollector{
		Checks:       make(map[domain.RecordID]int),
		TargetProbes: make(map[string]int),
	}
}

func (m *MockMetricsCollector) RecordCheck(id domain.RecordID, result domain.ConnectivityResult, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Checks[id]++
}

func (m *MockMetricsCollector) RecordTargetProbe(target string, result domain.TargetResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TargetProbes[target+"/"+string(result.Status)]++
}

func (m *MockMetricsCollector) RecordCoalescedCheck() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Coalesced++
}

func (m *MockMetricsCollector) RecordBatch(report domain.BatchReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Batches = append(m.Batches, report)
}

func (m *MockMetricsCollector) SetDirectorySize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DirectorySize = n
}

func (m *MockMetricsCollector) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Batches)
}

// Test Helpers

type testEnv struct {
	cfg      map[string]any
	platform config.Platform
	dbPath   string
	proxy    *httptest.Server
}

func newForwardProxy(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := r.Clone(r.Context())
		out.RequestURI = ""
		resp, err := http.DefaultTransport.RoundTrip(out)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func createTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tmpDir := t.TempDir()

	ipService := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ip": "192.0.2.10", "country_code": "NL", "country": "Netherlands"}`)
	}))
	t.Cleanup(ipService.Close)
	hung := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(hung.Close)

	env := &testEnv{
		platform: config.Platform{
			GOOS:      "darwin",
			Documents: filepath.Join(tmpDir, "Documents"),
			AppData:   filepath.Join(tmpDir, "Library"),
			Resources: filepath.Join(tmpDir, "Resources"),
		},
		dbPath: filepath.Join(tmpDir, "data", "proxy.db"),
		proxy:  newForwardProxy(t),
	}
	env.cfg = map[string]any{
		"settings_path": filepath.Join(tmpDir, "setting.json"),
		"database_path": env.dbPath,
		"probe": map[string]any{
			"timeout_ms":     300,
			"primary_target": 0,
			"targets": []map[string]string{
				{"name": "IP", "url": ipService.URL},
				{"name": "Hung", "url": hung.URL},
			},
		},
		"directory": map[string]any{
			"batch_concurrency": 2,
			"check_interval":    1,
		},
	}
	return env
}

func (e *testEnv) writeConfig(t *testing.T) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.json")
	data, err := json.Marshal(e.cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0644))
	t.Setenv("CONFIG_PATH", configPath)
}

func (e *testEnv) seed(t *testing.T, records ...domain.ProxyRecord) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(e.dbPath), 0755))
	s, err := store.Open(e.dbPath, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	for _, rec := range records {
		_, err := s.Create(context.Background(), rec)
		require.NoError(t, err)
	}
}

func createTestModule(env *testEnv, collector *MockMetricsCollector) fx.Option {
	return fx.Options(
		fx.Supply(zap.NewNop()),
		fx.Provide(func() config.Platform { return env.platform }),
		fx.Provide(config.NewConfig),
		fx.Provide(config.NewSettings),
		fx.Provide(func() domain.MetricsCollector { return collector }),
		fx.Invoke(func(lc fx.Lifecycle, c *directory.Controller) {
			lc.Append(fx.Hook{OnStart: c.Reload})
		}),
		target.Module,
		store.Module,
		checker.Module,
		directory.Module,
		worker.Module,
	)
}

// Tests

func TestApplicationIntegration(t *testing.T) {
	env := createTestEnv(t)
	env.writeConfig(t)
	env.seed(t,
		domain.ProxyRecord{ProxyType: domain.ProxyTypeHTTP, Endpoint: env.proxy.Listener.Addr().String(), IPChecker: domain.IPCheckerIP2Location},
		domain.ProxyRecord{ProxyType: domain.ProxyTypeSocks5, Endpoint: "127.0.0.1:1", IPChecker: domain.IPCheckerGeoIP},
	)

	mockMetrics := NewMockMetricsCollector()
	var controller *directory.Controller
	app := fx.New(
		fx.NopLogger,
		createTestModule(env, mockMetrics),
		fx.Populate(&controller),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Start(startCtx))

	t.Run("Scheduler Checks Directory", func(t *testing.T) {
		assert.Eventually(t, func() bool {
			return mockMetrics.batchCount() > 0
		}, 5*time.Second, 50*time.Millisecond)

		mockMetrics.mu.Lock()
		defer mockMetrics.mu.Unlock()

		assert.Equal(t, 2, mockMetrics.DirectorySize)
		assert.Len(t, mockMetrics.Batches[0].Checked, 2)
		assert.Greater(t, mockMetrics.TargetProbes["IP/connected"], 0)
		assert.Greater(t, mockMetrics.TargetProbes["Hung/error"], 0)
	})

	t.Run("Results Stored", func(t *testing.T) {
		records := controller.Records()
		require.Len(t, records, 2)

		working := records[0]
		require.NotNil(t, working.CheckResult)
		assert.Equal(t, "192.0.2.10", working.IP)
		assert.Equal(t, "NL", working.IPCountry)
		require.Len(t, working.CheckResult.Connectivity, 2)
		assert.Equal(t, domain.StatusConnected, working.CheckResult.Connectivity[0].Status)
		assert.Equal(t, domain.CodeTimeout, working.CheckResult.Connectivity[1].Code)

		unreachable := records[1]
		require.NotNil(t, unreachable.CheckResult)
		assert.Empty(t, unreachable.IP)
		for _, r := range unreachable.CheckResult.Connectivity {
			assert.Equal(t, domain.StatusError, r.Status)
		}
	})

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Stop(stopCtx))

	// Results survive a restart
	s, err := store.Open(env.dbPath, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	persisted, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.NotNil(t, persisted[0].CheckResult)
	assert.Equal(t, "NL", persisted[0].IPCountry)
}

func TestFailureScenarios(t *testing.T) {
	tests := []struct {
		name          string
		modifyConfig  func(map[string]any)
		expectedError string
	}{
		{
			name: "Invalid Batch Concurrency",
			modifyConfig: func(cfg map[string]any) {
				cfg["directory"] = map[string]any{"batch_concurrency": 0}
			},
			expectedError: "BatchConcurrency",
		},
		{
			name: "Primary Target Out Of Range",
			modifyConfig: func(cfg map[string]any) {
				probe := cfg["probe"].(map[string]any)
				probe["primary_target"] = 5
			},
			expectedError: "primary",
		},
		{
			name: "Non-HTTP Probe Target",
			modifyConfig: func(cfg map[string]any) {
				probe := cfg["probe"].(map[string]any)
				probe["targets"] = []map[string]string{{"name": "Bad", "url": "ftp://example.com"}}
			},
			expectedError: "Bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := createTestEnv(t)
			tt.modifyConfig(env.cfg)
			env.writeConfig(t)

			app := fx.New(
				fx.NopLogger,
				createTestModule(env, NewMockMetricsCollector()),
			)

			startCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := app.Start(startCtx)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}
