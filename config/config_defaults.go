package config

import (
	"contentblocker/blocklist"
)

// newDefaultConfig 返回未在文件中出现的字段所使用的初始值
// 布尔开关需要在反序列化前设置，否则无法区分"未配置"和"显式关闭"
func newDefaultConfig() *Config {
	return &Config{
		Blocking: BlockingConfig{
			BlockAds:       true,
			BlockAnalytics: true,
			BlockSocial:    true,
		},
		Proxy: ProxyConfig{
			Enabled: true,
		},
		WebUI: WebUIConfig{
			Enabled: true,
		},
	}
}

// setDefaultValues 设置配置文件中缺失字段的默认值
func setDefaultValues(cfg *Config) {
	setListsDefaults(&cfg.Lists)
	setEngineDefaults(&cfg.Engine)

	if cfg.Proxy.ListenPort == 0 {
		cfg.Proxy.ListenPort = 8118
	}
	if cfg.Proxy.MainDocumentHeader == "" {
		cfg.Proxy.MainDocumentHeader = "X-Main-Document-Url"
	}

	if cfg.WebUI.ListenPort == 0 {
		cfg.WebUI.ListenPort = 8080
	}

	if cfg.System.LogLevel == "" {
		cfg.System.LogLevel = "info"
	}
	if cfg.System.LogFormat == "" {
		cfg.System.LogFormat = "console"
	}
}

// setListsDefaults 设置列表配置的默认值
func setListsDefaults(lc *ListsConfig) {
	if lc.Dir == "" {
		lc.Dir = "./lists"
	}
	if lc.MaxSize == 0 {
		lc.MaxSize = blocklist.DefaultMaxListSize
	}
	if lc.MatchTimeoutMs == 0 {
		lc.MatchTimeoutMs = int(blocklist.DefaultMatchTimeout.Milliseconds())
	}
}

// setEngineDefaults 设置引擎配置的默认值
func setEngineDefaults(ec *EngineConfig) {
	if ec.VerdictCacheSize == 0 {
		ec.VerdictCacheSize = 4096
	}
	if ec.PageStatsSize == 0 {
		ec.PageStatsSize = 256
	}
}
