package webapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"contentblocker/adblock"
	"contentblocker/config"
	"contentblocker/logger"
	"contentblocker/stats"

	"github.com/AdguardTeam/golibs/errors"
)

// APIResponse 统一的 API 响应格式
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Server Web API 服务器
type Server struct {
	cfg        *config.Config
	cfgMutex   sync.RWMutex
	configPath string

	// updateMu 串行化配置文件的读改写
	updateMu sync.Mutex

	manager *adblock.Manager
	stats   *stats.Stats
	updater *adblock.ListUpdater

	// listenerMu 保护 listener 和 closed，Start 与 Shutdown 在不同协程调用
	listenerMu sync.Mutex
	listener   *http.Server
	closed     bool
}

// NewServer 创建新的 Web API 服务器，updater 为 nil 表示没有配置远程列表
func NewServer(
	cfg *config.Config,
	configPath string,
	manager *adblock.Manager,
	st *stats.Stats,
	updater *adblock.ListUpdater,
) *Server {
	return &Server{
		cfg:        cfg,
		configPath: configPath,
		manager:    manager,
		stats:      st,
		updater:    updater,
	}
}

// Handler 返回注册了所有路由的 HTTP 处理器
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/lists", s.handleLists)
	mux.HandleFunc("/api/lists/update", s.handleListsUpdate)
	mux.HandleFunc("/api/lists/merged", s.handleMergedLists)
	mux.HandleFunc("/api/reload", s.handleReload)
	mux.HandleFunc("/api/test", s.handleTest)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/stats/clear", s.handleClearStats)
	mux.HandleFunc("/api/page-stats", s.handlePageStats)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/health", s.handleHealth)

	return s.corsMiddleware(mux)
}

// Start 启动 Web API 服务，阻塞直到服务关闭
func (s *Server) Start() error {
	cfg := s.Config()
	if !cfg.WebUI.Enabled {
		logger.Info("[WebAPI] Disabled")
		return nil
	}

	s.listenerMu.Lock()
	if s.closed {
		s.listenerMu.Unlock()
		return nil
	}
	listener := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebUI.ListenPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.listener = listener
	s.listenerMu.Unlock()

	logger.Infof("[WebAPI] Server started on http://localhost:%d", cfg.WebUI.ListenPort)

	err := listener.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Shutdown 优雅关闭 Web API 服务，之后的 Start 直接返回
func (s *Server) Shutdown(ctx context.Context) error {
	s.listenerMu.Lock()
	s.closed = true
	listener := s.listener
	s.listenerMu.Unlock()

	if listener == nil {
		return nil
	}

	return listener.Shutdown(ctx)
}

// Config 返回当前生效的配置
func (s *Server) Config() *config.Config {
	s.cfgMutex.RLock()
	defer s.cfgMutex.RUnlock()

	return s.cfg
}

// ApplyConfig 应用新配置：更新日志级别并按分类开关重新加载列表
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.cfgMutex.Lock()
	s.cfg = cfg
	s.cfgMutex.Unlock()

	logger.SetLevel(cfg.System.LogLevel)
	s.manager.Reload(adblock.EnabledLists(cfg.Blocking))
}
