package webapi

import (
	"encoding/json"
	"net/http"

	"contentblocker/adblock"
	"contentblocker/blocklist"
	"contentblocker/config"
	"contentblocker/logger"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/httphdr"
)

// listView 单个分类及其列表的状态
type listView struct {
	LastError  string           `json:"last_error,omitempty"`
	LastUpdate string           `json:"last_update,omitempty"`
	Category   adblock.Category `json:"category"`
	Toggle     string           `json:"toggle"`
	List       string           `json:"list"`
	Status     string           `json:"status"`
	RuleCount  int              `json:"rule_count"`
	Enabled    bool             `json:"enabled"`
}

// testResult 单个请求的分类结果
type testResult struct {
	URL             string `json:"url"`
	MainDocumentURL string `json:"main_document_url"`
	Verdict         string `json:"verdict"`
	List            string `json:"list,omitempty"`
	Category        string `json:"category,omitempty"`
	Filter          string `json:"filter,omitempty"`
	RuleIndex       int    `json:"rule_index"`
	Blocked         bool   `json:"blocked"`
}

// handleStatus 处理拦截引擎状态请求
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSONSuccess(w, "Status retrieved successfully", s.manager.GetStats())
}

// handleLists 处理分类列表请求：GET 查询，PUT 切换开关
func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSONSuccess(w, "Lists retrieved successfully", s.listViews(s.Config()))
	case http.MethodPut:
		s.handleToggleList(w, r)
	default:
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listViews(cfg *config.Config) []listView {
	views := make([]listView, 0, len(adblock.Categories()))
	for _, c := range adblock.Categories() {
		view := listView{
			Category: c,
			Toggle:   c.Toggle(),
			List:     c.ListName(),
			Enabled:  c.Enabled(cfg.Blocking),
			Status:   "not_loaded",
		}

		if st, ok := s.manager.ListStatus(c.ListName()); ok {
			view.Status = st.Status
			view.RuleCount = st.RuleCount
			view.LastError = st.LastError
			view.LastUpdate = st.LastUpdate.Format(timeFormat)
		}

		views = append(views, view)
	}

	return views
}

// handleToggleList 切换分类开关，写回配置文件并重新加载列表
func (s *Server) handleToggleList(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Enabled  *bool  `json:"enabled"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Enabled == nil {
		s.writeJSONError(w, "enabled is required", http.StatusBadRequest)
		return
	}

	c, err := adblock.ParseCategory(payload.Category)
	if err != nil {
		s.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	newCfg, err := s.updateConfig(func(cfg *config.Config) error {
		return adblock.SetEnabled(&cfg.Blocking, c, *payload.Enabled)
	})
	if err != nil {
		logger.Errorf("[WebAPI] Failed to toggle %s: %v", c, err)
		s.writeJSONError(w, "Failed to update configuration: "+err.Error(), http.StatusInternalServerError)
		return
	}

	logger.Infof("[WebAPI] Category %s enabled=%v, reloading", c, *payload.Enabled)
	s.writeJSONSuccess(w, "Category updated, reload started", map[string]interface{}{
		"enabled_lists": adblock.EnabledLists(newCfg.Blocking),
	})
}

// handleReload 按当前开关同步重新编译列表
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	names := adblock.EnabledLists(s.Config().Blocking)
	err := s.manager.Rebuild(r.Context(), names)
	switch {
	case errors.Is(err, adblock.ErrSuperseded):
		s.writeJSONSuccess(w, "A newer reload was published", s.manager.GetStats())
	case err != nil:
		logger.Errorf("[WebAPI] Reload failed: %v", err)
		s.writeJSONError(w, "Reload failed: "+err.Error(), http.StatusInternalServerError)
	default:
		s.writeJSONSuccess(w, "Lists reloaded successfully", s.manager.GetStats())
	}
}

// handleListsUpdate 从远程地址更新列表，有更新时重新编译
func (s *Server) handleListsUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	if s.updater == nil {
		s.writeJSONError(w, "No list sources configured", http.StatusServiceUnavailable)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	res, err := s.updater.Update(r.Context(), force)
	if err != nil {
		logger.Warnf("[WebAPI] Failed to save list metadata: %v", err)
	}

	if len(res.Updated) > 0 {
		err = s.manager.Rebuild(r.Context(), adblock.EnabledLists(s.Config().Blocking))
		if err != nil && !errors.Is(err, adblock.ErrSuperseded) {
			s.writeJSONError(w, "Lists updated but reload failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	s.writeJSONSuccess(w, "Lists update finished", res)
}

// handleMergedLists 将已启用的列表合并为一个内容拦截规则数组直接输出
func (s *Server) handleMergedLists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	data, err := s.manager.MergedLists(adblock.EnabledLists(s.Config().Blocking))
	if err != nil {
		logger.Errorf("[WebAPI] Failed to merge lists: %v", err)
		s.writeJSONError(w, "Failed to merge lists: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set(httphdr.ContentType, "application/json")
	if _, err = w.Write(data); err != nil {
		logger.Debugf("[WebAPI] Failed to write merged lists: %v", err)
	}
}

// handleTest 测试请求的分类结果，不计入统计
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		URL             string `json:"url"`
		MainDocumentURL string `json:"main_document_url"`
	}

	switch r.Method {
	case http.MethodGet:
		payload.URL = r.URL.Query().Get("url")
		payload.MainDocumentURL = r.URL.Query().Get("main_document_url")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	default:
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	if payload.URL == "" {
		s.writeJSONError(w, "url cannot be empty", http.StatusBadRequest)
		return
	}
	if payload.MainDocumentURL == "" {
		payload.MainDocumentURL = payload.URL
	}

	res := s.manager.Test(payload.URL, payload.MainDocumentURL)
	s.writeJSONSuccess(w, "Test completed", newTestResult(payload.URL, payload.MainDocumentURL, res))
}

func newTestResult(resourceURL, mainDocumentURL string, res blocklist.Result) testResult {
	tr := testResult{
		URL:             resourceURL,
		MainDocumentURL: mainDocumentURL,
		Verdict:         res.Verdict.String(),
		Blocked:         res.IsBlocked(),
		RuleIndex:       -1,
	}

	if res.Rule != nil {
		tr.List = res.Rule.List
		tr.Filter = res.Rule.Filter
		tr.RuleIndex = res.Rule.Index
		if c, ok := adblock.CategoryForList(res.Rule.List); ok {
			tr.Category = string(c)
		}
	}

	return tr
}
