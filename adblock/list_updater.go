package adblock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"contentblocker/blocklist"
	"contentblocker/logger"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/c2h5oh/datasize"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxConcurrentDownloads = 5
	defaultDownloadTimeout        = 15 * time.Second

	listMetaFile = ".lists_meta.json"
)

// listMeta 远程列表的缓存信息
type listMeta struct {
	LastUpdate   time.Time `json:"last_update"`
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
}

// UpdateResult 一次列表更新的结果
type UpdateResult struct {
	Failed          map[string]string `json:"failed"`
	Updated         []string          `json:"updated"`
	NotModified     []string          `json:"not_modified"`
	DurationSeconds float64           `json:"duration_seconds"`
}

// ListUpdater 从远程地址下载拦截列表，校验通过后写入列表目录
type ListUpdater struct {
	client   *http.Client
	sources  map[string]string
	dir      string
	metaFile string
	maxSize  datasize.ByteSize

	mu   sync.Mutex
	meta map[string]*listMeta
}

// NewListUpdater creates an updater writing the lists of sources into dir.
func NewListUpdater(dir string, sources map[string]string, maxSize datasize.ByteSize) (u *ListUpdater, err error) {
	for name := range sources {
		if err = blocklist.ValidateName(name); err != nil {
			return nil, err
		}
	}

	if err = os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	u = &ListUpdater{
		client: &http.Client{
			Timeout: defaultDownloadTimeout,
		},
		sources:  sources,
		dir:      dir,
		metaFile: filepath.Join(dir, listMetaFile),
		maxSize:  maxSize,
		meta:     make(map[string]*listMeta),
	}

	if err = u.loadMeta(); err != nil && !errors.Is(err, os.ErrNotExist) {
		// 元数据损坏时重新下载全部列表
		logger.Warnf("[AdBlock] Ignoring list metadata: %v", err)
	}

	return u, nil
}

func (u *ListUpdater) loadMeta() error {
	data, err := os.ReadFile(u.metaFile)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	err = json.Unmarshal(data, &u.meta)
	if u.meta == nil {
		u.meta = make(map[string]*listMeta)
	}

	return err
}

func (u *ListUpdater) saveMeta() error {
	u.mu.Lock()
	data, err := json.MarshalIndent(u.meta, "", "  ")
	u.mu.Unlock()
	if err != nil {
		return err
	}

	return os.WriteFile(u.metaFile, data, 0644)
}

// Update downloads every source.  Unless force is set, unchanged lists are
// skipped using ETag and Last-Modified.  Failed sources are reported in the
// result, the returned error is only about the metadata file.
func (u *ListUpdater) Update(ctx context.Context, force bool) (res UpdateResult, err error) {
	startTime := time.Now()
	res.Failed = map[string]string{}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultMaxConcurrentDownloads)

	for name, url := range u.sources {
		name, url := name, url
		g.Go(func() error {
			updated, fetchErr := u.fetch(gctx, name, url, force)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case fetchErr != nil:
				logger.Warnf("[AdBlock] Failed to update list %s from %s: %v", name, url, fetchErr)
				res.Failed[name] = fetchErr.Error()
			case updated:
				res.Updated = append(res.Updated, name)
			default:
				res.NotModified = append(res.NotModified, name)
			}

			return nil
		})
	}
	_ = g.Wait()

	res.DurationSeconds = time.Since(startTime).Seconds()

	return res, u.saveMeta()
}

// fetch 下载单个列表，返回是否写入了新内容
func (u *ListUpdater) fetch(ctx context.Context, name, url string, force bool) (updated bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	u.mu.Lock()
	meta := u.meta[name]
	u.mu.Unlock()

	// Add cache headers to the request
	if !force && meta != nil && meta.URL == url && u.exists(name) {
		if meta.ETag != "" {
			req.Header.Set(httphdr.IfNoneMatch, meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set(httphdr.IfModifiedSince, meta.LastModified)
		}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { err = errors.WithDeferred(err, resp.Body.Close()) }()

	if resp.StatusCode == http.StatusNotModified {
		return false, nil
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("bad status: %s", resp.Status)
	}

	data, err := blocklist.ReadLimited(resp.Body, name, u.maxSize)
	if err != nil {
		return false, err
	}

	// 只有能完整编译的列表才会替换本地文件
	if _, err = blocklist.Compile(ctx, blocklist.StaticLoader{name: data}, []string{name}); err != nil {
		return false, err
	}

	if err = u.writeList(name, data); err != nil {
		return false, err
	}

	u.mu.Lock()
	u.meta[name] = &listMeta{
		LastUpdate:   time.Now(),
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get(httphdr.LastModified),
	}
	u.mu.Unlock()

	return true, nil
}

func (u *ListUpdater) exists(name string) bool {
	_, err := os.Stat(filepath.Join(u.dir, name+".json"))

	return err == nil
}

// writeList 先写临时文件再重命名，读取方不会看到写了一半的列表
func (u *ListUpdater) writeList(name string, data []byte) (err error) {
	tmp, err := os.CreateTemp(u.dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(u.dir, name+".json"))
}

// Start 按 interval 周期更新列表，有列表更新时调用 onUpdate（可为 nil）
func (u *ListUpdater) Start(ctx context.Context, interval time.Duration, onUpdate func(UpdateResult)) {
	if interval <= 0 || len(u.sources) == 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				res, err := u.Update(ctx, false)
				if err != nil {
					logger.Warnf("[AdBlock] Failed to save list metadata: %v", err)
				}
				if len(res.Updated) > 0 && onUpdate != nil {
					onUpdate(res)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
