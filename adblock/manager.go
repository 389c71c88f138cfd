package adblock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"contentblocker/blocklist"
	util "contentblocker/internal"
	"contentblocker/logger"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrSuperseded is returned by Rebuild when a more recently requested
// rebuild has already been published.
const ErrSuperseded errors.Error = "rebuild superseded by a newer request"

// Manager 持有当前拦截列表快照，负责重新加载和统计
type Manager struct {
	compiler *blocklist.Compiler
	recorder Recorder

	current atomic.Pointer[Snapshot]

	// requested 是最近一次请求的构建序号
	requested atomic.Uint64

	// publishMu 保护 published 和 version
	publishMu sync.Mutex
	published uint64
	version   uint64

	reloadCtx    context.Context
	cancelReload context.CancelFunc
	reloads      sync.WaitGroup

	cacheSize int
	pages     *pageStatsCache
	lists     *listTracker
	stats     *Stats
}

// NewManager compiles the named lists and returns a manager serving them.
// It fails when the initial lists can't be compiled.
func NewManager(
	ctx context.Context,
	loader blocklist.Loader,
	names []string,
	opts Options,
) (m *Manager, err error) {
	cacheSize := opts.VerdictCacheSize
	if cacheSize == 0 {
		cacheSize = DefaultVerdictCacheSize
	}

	pageStatsSize := opts.PageStatsSize
	if pageStatsSize <= 0 {
		pageStatsSize = DefaultPageStatsSize
	}

	pages, err := newPageStatsCache(pageStatsSize)
	if err != nil {
		return nil, fmt.Errorf("creating page stats cache: %w", err)
	}

	m = &Manager{
		compiler: &blocklist.Compiler{
			Loader:       loader,
			MatchTimeout: opts.MatchTimeout,
		},
		recorder:  opts.Recorder,
		cacheSize: cacheSize,
		pages:     pages,
		lists:     newListTracker(),
		stats:     NewStats(),
	}
	m.reloadCtx, m.cancelReload = context.WithCancel(context.Background())

	if err = m.Rebuild(ctx, names); err != nil {
		m.cancelReload()

		return nil, err
	}

	return m, nil
}

// Current returns the published snapshot.
func (m *Manager) Current() *Snapshot {
	return m.current.Load()
}

// Check classifies a request against the current snapshot and records the
// outcome.
func (m *Manager) Check(resourceURL, mainDocumentURL string) blocklist.Result {
	res := m.Current().match(resourceURL, mainDocumentURL)
	m.record(res, resourceURL, mainDocumentURL)

	return res
}

// Test classifies a request against the current snapshot without recording
// anything.
func (m *Manager) Test(resourceURL, mainDocumentURL string) blocklist.Result {
	return m.Current().match(resourceURL, mainDocumentURL)
}

func (m *Manager) record(res blocklist.Result, resourceURL, mainDocumentURL string) {
	var category string
	if res.IsBlocked() {
		c, ok := CategoryForList(res.Rule.List)
		category = string(c)
		if !ok {
			category = res.Rule.List
		}

		m.stats.RecordBlock()
		m.pages.add(mainDocumentURL, c)
	}

	if m.recorder != nil {
		m.recorder.RecordRequest(util.HostOf(resourceURL), res.IsBlocked(), category)
	}
}

// Rebuild compiles the named lists and publishes them before returning.  On
// error the current snapshot stays in place.
func (m *Manager) Rebuild(ctx context.Context, names []string) error {
	gen := m.requested.Add(1)

	return m.build(ctx, gen, names)
}

// Reload rebuilds the named lists in the background.  When reloads overlap,
// the most recently requested one wins.  Failures are logged and keep the
// current snapshot.
func (m *Manager) Reload(names []string) {
	gen := m.requested.Add(1)
	names = slices.Clone(names)

	m.reloads.Add(1)
	go func() {
		defer m.reloads.Done()

		err := m.build(m.reloadCtx, gen, names)
		if errors.Is(err, ErrSuperseded) {
			logger.Debugf("[AdBlock] Reload #%d superseded", gen)
		} else if err != nil {
			logger.Errorf("[AdBlock] Reload #%d failed, keeping version %d: %v", gen, m.Current().Version, err)
		}
	}()
}

// Wait blocks until all background reloads have finished.
func (m *Manager) Wait() {
	m.reloads.Wait()
}

// Close cancels background reloads and waits for them.
func (m *Manager) Close() {
	m.cancelReload()
	m.Wait()
}

// build 编译并发布，编译在锁外进行，只有比较序号和替换指针时持锁
func (m *Manager) build(ctx context.Context, gen uint64, names []string) (err error) {
	start := time.Now()

	list, err := m.compiler.Compile(ctx, names)
	if err != nil {
		m.lists.markFailed(err, time.Now())

		return fmt.Errorf("building block list: %w", err)
	}

	snap, err := newSnapshot(list, m.cacheSize)
	if err != nil {
		return fmt.Errorf("creating verdict cache: %w", err)
	}

	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	if gen < m.published {
		return ErrSuperseded
	}

	m.version++
	m.published = gen
	snap.Version = m.version
	m.current.Store(snap)
	m.lists.markLoaded(list, snap.CompiledAt)

	logger.Infof(
		"[AdBlock] Loaded %d rules from %d lists in %s (version %d)",
		list.Len(),
		len(list.Names()),
		time.Since(start).Round(time.Millisecond),
		snap.Version,
	)

	return nil
}

// MergedLists returns the rules of the named lists as one JSON array, read
// from the same loader the manager compiles from.
func (m *Manager) MergedLists(names []string) ([]byte, error) {
	return blocklist.Merge(m.compiler.Loader, names)
}

// PageStats returns the blocked-request counters of a main document.
func (m *Manager) PageStats(mainDocumentURL string) (stats PageStats, ok bool) {
	return m.pages.lookup(mainDocumentURL)
}

// ListStatuses returns the load status of every list seen so far.
func (m *Manager) ListStatuses() []ListStatus {
	return m.lists.statuses()
}

// ListStatus returns the load status of the named list.
func (m *Manager) ListStatus(name string) (s ListStatus, ok bool) {
	return m.lists.get(name)
}

// GetStats returns the engine statistics.
func (m *Manager) GetStats() AdBlockStats {
	return m.stats.GetStats(m.Current(), m.lists.failed())
}

// ClearStats resets the block counters and page statistics.
func (m *Manager) ClearStats() {
	m.stats.Reset()
	m.pages.purge()
}
