package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"contentblocker/adblock"
	"contentblocker/blocklist"
	"contentblocker/config"
	"contentblocker/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() blocklist.StaticLoader {
	return blocklist.StaticLoader{
		"disconnect-advertising": []byte(`[{"trigger": {"url-filter": "^https://ads\\.example\\.com/"}}]`),
		"disconnect-analytics":   []byte(`[{"trigger": {"url-filter": "^https://stats\\.example\\.com/"}}]`),
		"disconnect-social":      []byte(`[{"trigger": {"url-filter": "^https://social\\.example\\.com/", "load-type": ["third-party"]}}]`),
		"disconnect-content":     []byte(`[{"trigger": {"url-filter": "^https://cdn\\.example\\.com/"}}]`),
		"web-fonts":              []byte(`[{"trigger": {"url-filter": "^https://fonts\\.example\\.com/", "resource-type": ["font"]}}]`),
	}
}

type testEnv struct {
	server     *Server
	manager    *adblock.Manager
	stats      *stats.Stats
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)

	st := stats.NewStats()
	mgr, err := adblock.NewManager(context.Background(), testLoader(), adblock.EnabledLists(cfg.Blocking), adblock.Options{
		Recorder: st,
	})
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	return &testEnv{
		server:     NewServer(cfg, configPath, mgr, st, nil),
		manager:    mgr,
		stats:      st,
		configPath: configPath,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) (int, APIResponse) {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, &reqBody))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return rec.Code, resp
}

// decodeData 把响应中的 data 重新解码为 v
func decodeData(t *testing.T, resp APIResponse, v any) {
	t.Helper()

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)

	var st adblock.AdBlockStats
	decodeData(t, resp, &st)
	assert.Equal(t, []string{"disconnect-advertising", "disconnect-analytics", "disconnect-social"}, st.Lists)
	assert.Equal(t, 3, st.TotalRules)
	assert.Equal(t, uint64(1), st.Version)

	code, _ = env.do(t, http.MethodPost, "/api/status", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestTestEndpoint(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodGet, "/api/test?url=https://ads.example.com/a.js&main_document_url=https://news.org/", nil)
	require.Equal(t, http.StatusOK, code)

	var res testResult
	decodeData(t, resp, &res)
	assert.True(t, res.Blocked)
	assert.Equal(t, "blocked", res.Verdict)
	assert.Equal(t, "disconnect-advertising", res.List)
	assert.Equal(t, "advertising", res.Category)
	assert.Equal(t, 0, res.RuleIndex)

	// 主文档默认为资源本身，第三方规则不生效
	code, resp = env.do(t, http.MethodPost, "/api/test", map[string]string{
		"url": "https://social.example.com/like.js",
	})
	require.Equal(t, http.StatusOK, code)
	decodeData(t, resp, &res)
	assert.False(t, res.Blocked)
	assert.Equal(t, -1, res.RuleIndex)
	assert.Equal(t, "https://social.example.com/like.js", res.MainDocumentURL)

	code, _ = env.do(t, http.MethodGet, "/api/test", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	// 测试请求不计入统计
	assert.Equal(t, int64(0), env.manager.GetStats().BlockedTotal)
}

func TestToggleList(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPut, "/api/lists", map[string]any{
		"category": "fonts",
		"enabled":  true,
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	env.manager.Wait()

	assert.Contains(t, env.manager.Current().Names(), "web-fonts")

	saved, err := config.LoadConfig(env.configPath)
	require.NoError(t, err)
	assert.True(t, saved.Blocking.BlockFonts)

	code, resp = env.do(t, http.MethodGet, "/api/lists", nil)
	require.Equal(t, http.StatusOK, code)

	var views []listView
	decodeData(t, resp, &views)
	require.Len(t, views, len(adblock.Categories()))
	for _, v := range views {
		switch v.Category {
		case adblock.CategoryFonts:
			assert.True(t, v.Enabled)
			assert.Equal(t, "active", v.Status)
			assert.Equal(t, 1, v.RuleCount)
		case adblock.CategoryContent:
			assert.False(t, v.Enabled)
			assert.Equal(t, "not_loaded", v.Status)
		}
	}
}

func TestToggleListErrors(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPut, "/api/lists", map[string]any{
		"category": "popups",
		"enabled":  true,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPut, "/api/lists", map[string]any{
		"category": "fonts",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodDelete, "/api/lists", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestReload(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPost, "/api/reload", nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, uint64(2), env.manager.Current().Version)
}

func TestListsUpdateWithoutSources(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/lists/update", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestStatsAndPageStats(t *testing.T) {
	env := newTestEnv(t)

	env.manager.Check("https://ads.example.com/a.js", "https://news.org/")
	env.manager.Check("https://stats.example.com/p.gif", "https://news.org/")
	env.manager.Check("https://news.org/app.js", "https://news.org/")

	code, resp := env.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Engine          adblock.AdBlockStats `json:"engine"`
		TotalRequests   int64                `json:"total_requests"`
		BlockedRequests int64                `json:"blocked_requests"`
	}
	decodeData(t, resp, &data)
	assert.Equal(t, int64(3), data.TotalRequests)
	assert.Equal(t, int64(2), data.BlockedRequests)
	assert.Equal(t, int64(2), data.Engine.BlockedTotal)

	code, resp = env.do(t, http.MethodGet, "/api/page-stats?url=https://news.org/", nil)
	require.Equal(t, http.StatusOK, code)

	var page map[string]any
	decodeData(t, resp, &page)
	assert.EqualValues(t, 1, page["ads"])
	assert.EqualValues(t, 1, page["analytics"])
	assert.EqualValues(t, 2, page["total"])

	code, _ = env.do(t, http.MethodGet, "/api/page-stats", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, "/api/stats/clear", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(0), env.manager.GetStats().BlockedTotal)
	assert.Empty(t, env.stats.CategoryCounts())
}

func TestConfigEndpoint(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, code)

	var cfg config.Config
	decodeData(t, resp, &cfg)
	assert.True(t, cfg.Blocking.BlockAds)

	code, resp = env.do(t, http.MethodPost, "/api/config", map[string]any{
		"blocking": map[string]any{"block_ads": false},
		"system":   map[string]any{"log_level": "debug"},
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	env.manager.Wait()

	current := env.server.Config()
	assert.False(t, current.Blocking.BlockAds)
	assert.True(t, current.Blocking.BlockAnalytics)
	assert.Equal(t, "debug", current.System.LogLevel)
	assert.NotContains(t, env.manager.Current().Names(), "disconnect-advertising")

	code, _ = env.do(t, http.MethodPost, "/api/config", map[string]any{
		"proxy": map[string]any{"listen_port": 70000},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, current, env.server.Config())
}

// startServer 在后台启动 Web API，返回 Start 的结果
func startServer(s *Server) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.Start()
	}()

	return done
}

func TestShutdownBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	env.server.Config().WebUI.ListenPort = 0

	require.NoError(t, env.server.Shutdown(context.Background()))

	select {
	case err := <-startServer(env.server):
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
}

func TestStartShutdown(t *testing.T) {
	env := newTestEnv(t)
	env.server.Config().WebUI.ListenPort = 0

	done := startServer(env.server)
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.server.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start didn't return after Shutdown")
	}
}

func TestMergedLists(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lists/merged", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rules []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	require.Len(t, rules, 3)

	// 合并结果本身是可编译的列表，顺序与启用的列表一致
	list, err := blocklist.Compile(context.Background(), blocklist.StaticLoader{"merged": rec.Body.Bytes()}, []string{"merged"})
	require.NoError(t, err)
	assert.Equal(t, `^https://ads\.example\.com/`, list.Rule(0).Filter)
	assert.Equal(t, `^https://social\.example\.com/`, list.Rule(2).Filter)

	code, _ := env.do(t, http.MethodPost, "/api/lists/merged", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}
