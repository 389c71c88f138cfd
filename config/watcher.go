package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"contentblocker/logger"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce 合并编辑器保存时产生的多次写事件
const watchDebounce = 100 * time.Millisecond

// Watcher 监听配置文件变化，重新解析后通知回调
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu        sync.Mutex
	callbacks []func(*Config)
}

// NewWatcher 创建配置文件监听器。监听的是文件所在目录，
// 以便捕获编辑器"写临时文件再重命名"方式的保存
func NewWatcher(path string) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	if err = fw.Add(filepath.Dir(absPath)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(absPath), err)
	}

	return &Watcher{
		path:    absPath,
		watcher: fw,
	}, nil
}

// OnConfigChange 注册配置变化回调
func (w *Watcher) OnConfigChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.callbacks = append(w.callbacks, callback)
}

// Run 处理文件事件直到 ctx 结束，之后关闭底层监听器
func (w *Watcher) Run(ctx context.Context) {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			logger.Warnf("[Config] Failed to close watcher: %v", err)
		}
	}()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("[Config] Watcher error: %v", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

// reload 重新读取配置文件，解析失败时保留旧配置
func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		logger.Warnf("[Config] Failed to read %s: %v", w.path, err)
		return
	}

	cfg, err := Parse(data)
	if err != nil {
		logger.Warnf("[Config] Ignoring invalid config change: %v", err)
		return
	}

	logger.Debugf("[Config] Reloaded %s", w.path)

	w.mu.Lock()
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, callback := range callbacks {
		callback(cfg)
	}
}
