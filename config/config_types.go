package config

import "github.com/c2h5oh/datasize"

// Config 主配置结构
type Config struct {
	Blocking BlockingConfig `yaml:"blocking" json:"blocking"`
	Lists    ListsConfig    `yaml:"lists" json:"lists"`
	Engine   EngineConfig   `yaml:"engine" json:"engine"`
	Proxy    ProxyConfig    `yaml:"proxy" json:"proxy"`
	WebUI    WebUIConfig    `yaml:"webui" json:"webui"`
	System   SystemConfig   `yaml:"system" json:"system"`
}

// BlockingConfig 拦截分类开关，每个开关对应一个拦截列表
type BlockingConfig struct {
	BlockAds       bool `yaml:"block_ads" json:"block_ads"`
	BlockAnalytics bool `yaml:"block_analytics" json:"block_analytics"`
	BlockSocial    bool `yaml:"block_social" json:"block_social"`
	BlockOther     bool `yaml:"block_other" json:"block_other"`
	BlockFonts     bool `yaml:"block_fonts" json:"block_fonts"`
}

// ListsConfig 拦截列表文件配置
type ListsConfig struct {
	// Dir 是存放 <name>.json 列表文件的目录
	Dir            string            `yaml:"dir,omitempty" json:"dir"`
	MaxSize        datasize.ByteSize `yaml:"max_size,omitempty" json:"max_size"`
	MatchTimeoutMs int               `yaml:"match_timeout_ms,omitempty" json:"match_timeout_ms"`

	// Sources 列表名到下载地址的映射，为空时只使用本地文件
	Sources             map[string]string `yaml:"sources,omitempty" json:"sources"`
	UpdateIntervalHours int               `yaml:"update_interval_hours,omitempty" json:"update_interval_hours"`
}

// EngineConfig 匹配引擎配置
type EngineConfig struct {
	VerdictCacheSize int `yaml:"verdict_cache_size,omitempty" json:"verdict_cache_size"`
	PageStatsSize    int `yaml:"page_stats_size,omitempty" json:"page_stats_size"`
}

// ProxyConfig 拦截代理配置
type ProxyConfig struct {
	Enabled            bool   `yaml:"enabled" json:"enabled"`
	ListenPort         int    `yaml:"listen_port,omitempty" json:"listen_port"`
	MainDocumentHeader string `yaml:"main_document_header,omitempty" json:"main_document_header"`
}

// WebUIConfig Web 管理接口配置
type WebUIConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	ListenPort int  `yaml:"listen_port,omitempty" json:"listen_port"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	LogLevel  string `yaml:"log_level,omitempty" json:"log_level"`
	LogFormat string `yaml:"log_format,omitempty" json:"log_format"`
}
