package webapi

import (
	"encoding/json"
	"maps"
	"net/http"

	"contentblocker/config"
	"contentblocker/logger"

	"github.com/AdguardTeam/golibs/httphdr"
)

// writeJSONError 写入 JSON 错误响应
func (s *Server) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set(httphdr.ContentType, "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Message: message,
	}); err != nil {
		logger.Debugf("[WebAPI] Failed to write error response: %v", err)
	}
}

// writeJSONSuccess 写入 JSON 成功响应
func (s *Server) writeJSONSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set(httphdr.ContentType, "application/json")
	if err := json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}); err != nil {
		logger.Debugf("[WebAPI] Failed to write response: %v", err)
	}
}

// corsMiddleware CORS 中间件
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(httphdr.AccessControlAllowOrigin, "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", httphdr.ContentType)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// updateConfig 在当前配置的副本上应用 update，校验后写回配置文件并生效
func (s *Server) updateConfig(update func(cfg *config.Config) error) (*config.Config, error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	newCfg := *s.Config()
	newCfg.Lists.Sources = maps.Clone(newCfg.Lists.Sources)

	if err := update(&newCfg); err != nil {
		return nil, err
	}

	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	if err := config.Save(s.configPath, &newCfg); err != nil {
		return nil, err
	}

	logger.Infof("[WebAPI] Configuration written to %s", s.configPath)
	s.ApplyConfig(&newCfg)

	return &newCfg, nil
}
