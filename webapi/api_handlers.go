package webapi

import (
	"encoding/json"
	"net/http"
	"time"

	"contentblocker/config"
	"contentblocker/logger"

	"github.com/AdguardTeam/golibs/httphdr"
)

const timeFormat = time.RFC3339

// handleStats 处理统计信息请求
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	data := s.stats.GetStats()
	data["engine"] = s.manager.GetStats()

	s.writeJSONSuccess(w, "Stats retrieved successfully", data)
}

// handleClearStats 处理清空统计信息请求
func (s *Server) handleClearStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	s.stats.Reset()
	s.manager.ClearStats()
	logger.Info("[WebAPI] Statistics cleared via API request.")
	s.writeJSONSuccess(w, "All stats cleared successfully", nil)
}

// handlePageStats 查询单个页面的拦截计数
func (s *Server) handlePageStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		s.writeJSONError(w, "Missing url parameter", http.StatusBadRequest)
		return
	}

	ps, _ := s.manager.PageStats(pageURL)
	s.writeJSONSuccess(w, "Page stats retrieved successfully", map[string]interface{}{
		"url":       pageURL,
		"ads":       ps.Ads,
		"analytics": ps.Analytics,
		"content":   ps.Content,
		"social":    ps.Social,
		"total":     ps.Total(),
	})
}

// handleConfig 处理配置请求
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSONSuccess(w, "Config retrieved successfully", s.Config())
	case http.MethodPost:
		s.handlePostConfig(w, r)
	default:
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
	}
}

// handlePostConfig 更新配置，请求中未出现的字段保持原值
func (s *Server) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSONError(w, "Failed to parse config JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	_, err := s.updateConfig(func(cfg *config.Config) error {
		return json.Unmarshal(body, cfg)
	})
	if err != nil {
		s.writeJSONError(w, "Configuration rejected: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.writeJSONSuccess(w, "Configuration saved and applied successfully", nil)
}

// handleHealth 处理健康检查请求
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(httphdr.ContentType, "application/json")
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
