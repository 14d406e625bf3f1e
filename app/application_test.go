package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"proxy-checker/internal/common"
	"proxy-checker/internal/config"
	"proxy-checker/internal/domain"
	"proxy-checker/internal/status"
)

func forwardProxy(t *testing.T) *httptest.Server {
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

func testConfig(t *testing.T, dir string) (*config.Config, config.Platform) {
	t.Helper()

	ipTarget := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ip": "198.51.100.1", "country": "Testland"}`)
	}))
	t.Cleanup(ipTarget.Close)
	pingTarget := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(pingTarget.Close)

	platform := config.Platform{
		GOOS:      "linux",
		Documents: filepath.Join(dir, "Documents"),
		AppData:   filepath.Join(dir, "AppData"),
		Resources: filepath.Join(dir, "resources"),
	}

	cfg := config.Default(platform)
	cfg.Probe.TimeoutMs = 1000
	cfg.Probe.Targets = []domain.ProbeTarget{
		{Name: "IP", URL: ipTarget.URL},
		{Name: "Ping", URL: pingTarget.URL},
	}
	cfg.Directory.BatchConcurrency = 2
	cfg.Exporters = []config.ExporterConfig{
		{Type: config.ExporterTypeJSON, Path: filepath.Join(dir, "export", "proxies.json")},
	}
	return &cfg, platform
}

func TestApplicationCheckAndExport(t *testing.T) {
	dir := t.TempDir()
	cfg, platform := testConfig(t, dir)
	proxy := forwardProxy(t)

	ta := NewTestApplication(t,
		common.WithLogger(zap.NewNop()),
		common.WithConfig(cfg),
		common.WithPlatform(platform),
		common.WithRegistry(prometheus.NewRegistry()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, ta.Start(ctx))
	defer func() { require.NoError(t, ta.Stop(ctx)) }()

	assert.FileExists(t, cfg.SettingsPath)
	assert.DirExists(t, filepath.Join(platform.AppData, "ChromePowerCache"))

	dirCtl := ta.Directory()
	require.NotNil(t, dirCtl)
	assert.Empty(t, dirCtl.Records())

	good, err := dirCtl.Create(ctx, domain.ProxyRecord{
		ProxyType: domain.ProxyTypeHTTP,
		Endpoint:  proxy.Listener.Addr().String(),
		IPChecker: domain.IPCheckerGeoIP,
		Remark:    "local",
	})
	require.NoError(t, err)
	bad, err := dirCtl.Create(ctx, domain.ProxyRecord{
		ProxyType: domain.ProxyTypeSocks5,
		Endpoint:  "127.0.0.1:1",
		IPChecker: domain.IPCheckerIP2Location,
	})
	require.NoError(t, err)

	report, err := dirCtl.CheckAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.RecordID{good.ID, bad.ID}, report.Checked)

	rec, err := dirCtl.Get(good.ID)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1", rec.IP)
	assert.Equal(t, "Testland", rec.IPCountry)
	statuses, err := dirCtl.Statuses(good.ID)
	require.NoError(t, err)
	assert.Equal(t, []status.Status{status.Success, status.Success}, statuses)

	statuses, err = dirCtl.Statuses(bad.ID)
	require.NoError(t, err)
	assert.Equal(t, []status.Status{status.Failure, status.Failure}, statuses)

	found, err := dirCtl.Search(ctx, "testland")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, good.ID, found[0].ID)

	require.NoError(t, ta.Export(ctx))
	data, err := os.ReadFile(filepath.Join(dir, "export", "proxies.json"))
	require.NoError(t, err)

	var rows []domain.ExportRow
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "local", rows[0].Remark)
	assert.Equal(t, "198.51.100.1", rows[0].IP)
}

func TestApplicationReloadsExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg, platform := testConfig(t, dir)

	start := func() *TestApplication {
		ta := NewTestApplication(t,
			common.WithConfig(cfg),
			common.WithPlatform(platform),
			common.WithRegistry(prometheus.NewRegistry()),
		)
		require.NoError(t, ta.Start(context.Background()))
		return ta
	}

	first := start()
	_, err := first.Directory().Create(context.Background(), domain.ProxyRecord{
		ProxyType: domain.ProxyTypeSocks5,
		Endpoint:  "10.0.0.1:1080:alice:secret",
		IPChecker: domain.IPCheckerGeoIP,
	})
	require.NoError(t, err)
	require.NoError(t, first.Stop(context.Background()))

	second := start()
	defer func() { require.NoError(t, second.Stop(context.Background())) }()

	records := second.Directory().Records()
	require.Len(t, records, 1)
	assert.Equal(t, "10.0.0.1:1080:alice:secret", records[0].Endpoint)
	assert.False(t, records[0].Checking)
}
