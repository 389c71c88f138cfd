package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CreateDefaultConfig 创建默认配置文件
func CreateDefaultConfig(filePath string) error {
	return os.WriteFile(filePath, []byte(DefaultConfigContent), 0644)
}

// LoadConfig 从 YAML 文件加载配置，文件不存在时自动创建默认配置文件
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}

		if err = CreateDefaultConfig(filePath); err != nil {
			return nil, err
		}

		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
	}

	return Parse(data)
}

// Parse 解析 YAML 配置内容并补齐默认值
func Parse(data []byte) (*Config, error) {
	cfg := newDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	setDefaultValues(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save 将配置写回文件（注释不会保留）
func Save(filePath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0644)
}

// Validate 检查配置取值范围
func (c *Config) Validate() error {
	for name, port := range map[string]int{
		"proxy.listen_port": c.Proxy.ListenPort,
		"webui.listen_port": c.WebUI.ListenPort,
	} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s: port %d out of range", name, port)
		}
	}

	if c.Lists.UpdateIntervalHours < 0 {
		return fmt.Errorf("lists.update_interval_hours: negative value %d", c.Lists.UpdateIntervalHours)
	}
	for name, url := range c.Lists.Sources {
		if url == "" {
			return fmt.Errorf("lists.sources.%s: empty url", name)
		}
	}

	if c.Lists.MatchTimeoutMs < 0 {
		return fmt.Errorf("lists.match_timeout_ms: negative value %d", c.Lists.MatchTimeoutMs)
	}
	if c.Engine.VerdictCacheSize < 0 || c.Engine.PageStatsSize < 0 {
		return fmt.Errorf("engine: cache sizes must not be negative")
	}

	return nil
}

// ListsDir 返回列表目录的绝对路径，相对路径基于配置文件所在目录
func (c *Config) ListsDir(configPath string) string {
	if filepath.IsAbs(c.Lists.Dir) {
		return c.Lists.Dir
	}

	return filepath.Join(filepath.Dir(configPath), c.Lists.Dir)
}

// MatchTimeout 返回单条规则匹配超时
func (c *Config) MatchTimeout() time.Duration {
	return time.Duration(c.Lists.MatchTimeoutMs) * time.Millisecond
}
