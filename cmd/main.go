package main

import (
	"fmt"
	"os"
	"path/filepath"

	"contentblocker/blocklist"
	"contentblocker/bundled"
	"contentblocker/config"
	"contentblocker/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	workDir    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "contentblocker",
	Short: "内容拦截引擎",
	Long: `contentblocker 按分类加载 content-blocker 规则列表，对资源请求进行拦截判断，
并以 HTTP 代理和 Web API 的形式提供服务。`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "w", "", "工作目录")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// effectiveConfigPath 相对路径的配置文件与工作目录拼接
func effectiveConfigPath() (string, error) {
	dir := workDir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("无法获取当前工作目录: %w", err)
		}
	}

	if filepath.IsAbs(configPath) {
		return configPath, nil
	}

	return filepath.Join(dir, configPath), nil
}

// loadConfig 加载配置并立即应用日志设置
func loadConfig() (cfg *config.Config, path string, err error) {
	path, err = effectiveConfigPath()
	if err != nil {
		return nil, "", err
	}

	cfg, err = config.LoadConfig(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetFormat(cfg.System.LogFormat)
	if verbose {
		logger.SetLevel("debug")
	} else {
		logger.SetLevel(cfg.System.LogLevel)
	}

	return cfg, path, nil
}

// listLoader 优先读取列表目录，目录中缺少的列表使用内置列表
func listLoader(cfg *config.Config, path string) blocklist.Loader {
	return blocklist.FallbackLoader{
		blocklist.NewDirLoader(cfg.ListsDir(path), cfg.Lists.MaxSize),
		bundled.NewLoader(cfg.Lists.MaxSize),
	}
}
