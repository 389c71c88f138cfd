package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"contentblocker/adblock"
	"contentblocker/config"
	"contentblocker/interceptor"
	"contentblocker/logger"
	"contentblocker/stats"
	"contentblocker/webapi"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动拦截代理和 Web API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listsDir := cfg.ListsDir(path)
	updater, err := newUpdater(cfg, listsDir)
	if err != nil {
		return err
	}
	if updater != nil {
		fetchMissingLists(ctx, updater, cfg, listsDir)
	}

	st := stats.NewStats()
	names := adblock.EnabledLists(cfg.Blocking)
	mgr, err := adblock.NewManager(ctx, listLoader(cfg, path), names, adblock.Options{
		Recorder:         st,
		MatchTimeout:     cfg.MatchTimeout(),
		VerdictCacheSize: cfg.Engine.VerdictCacheSize,
		PageStatsSize:    cfg.Engine.PageStatsSize,
	})
	if err != nil {
		return fmt.Errorf("failed to load block lists: %w", err)
	}
	defer mgr.Close()

	logger.Infof("Loaded %d rules from %v", mgr.GetStats().TotalRules, names)

	server := webapi.NewServer(cfg, path, mgr, st, updater)

	if updater != nil {
		interval := time.Duration(cfg.Lists.UpdateIntervalHours) * time.Hour
		updater.Start(ctx, interval, func(res adblock.UpdateResult) {
			logger.Infof("Lists updated: %v", res.Updated)
			mgr.Reload(adblock.EnabledLists(server.Config().Blocking))
		})
	}

	watcher, err := config.NewWatcher(path)
	if err != nil {
		logger.Warnf("Config hot reload disabled: %v", err)
	} else {
		watcher.OnConfigChange(server.ApplyConfig)
		go watcher.Run(ctx)
	}

	errCh := make(chan error, 2)

	var proxyServer *http.Server
	if cfg.Proxy.Enabled {
		transport := interceptor.NewTransport(nil, mgr, cfg.Proxy.MainDocumentHeader)
		proxyServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Proxy.ListenPort),
			Handler:           interceptor.NewProxy(transport),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Infof("Proxy started on :%d", cfg.Proxy.ListenPort)
			if err := proxyServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("proxy: %w", err)
			}
		}()
	}

	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("web api: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err = <-errCh:
		logger.Errorf("Server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if proxyServer != nil {
		if sErr := proxyServer.Shutdown(shutdownCtx); sErr != nil {
			logger.Errorf("Failed to stop proxy: %v", sErr)
		}
	}

	if sErr := server.Shutdown(shutdownCtx); sErr != nil {
		logger.Errorf("Failed to stop Web API server: %v", sErr)
	}

	logger.Info("Server gracefully stopped.")

	return err
}

// newUpdater 创建列表更新器，没有配置远程地址时返回 nil
func newUpdater(cfg *config.Config, listsDir string) (*adblock.ListUpdater, error) {
	if len(cfg.Lists.Sources) == 0 {
		return nil, nil
	}

	updater, err := adblock.NewListUpdater(listsDir, cfg.Lists.Sources, cfg.Lists.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create list updater: %w", err)
	}

	return updater, nil
}

// fetchMissingLists 启动时有已启用的列表文件缺失则先下载一次
func fetchMissingLists(ctx context.Context, updater *adblock.ListUpdater, cfg *config.Config, listsDir string) {
	for _, name := range adblock.EnabledLists(cfg.Blocking) {
		if _, err := os.Stat(filepath.Join(listsDir, name+".json")); err == nil {
			continue
		}

		logger.Infof("List %s is missing, downloading sources", name)
		res, err := updater.Update(ctx, false)
		if err != nil {
			logger.Warnf("Failed to save list metadata: %v", err)
		}
		for failed, reason := range res.Failed {
			logger.Warnf("Failed to download list %s: %s", failed, reason)
		}

		return
	}
}
