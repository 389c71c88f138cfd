package adblock

import (
	"slices"
	"strings"
	"sync"
	"time"

	"contentblocker/blocklist"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	listStatusActive = "active"
	listStatusFailed = "failed"
)

// ListStatus 单个拦截列表的加载状态
type ListStatus struct {
	LastUpdate time.Time `json:"last_update"`
	Name       string    `json:"name"`
	Category   Category  `json:"category,omitempty"`
	Status     string    `json:"status"` // "active", "failed"
	LastError  string    `json:"last_error,omitempty"`
	RuleCount  int       `json:"rule_count"`
	FailCount  int       `json:"fail_count"`
}

// listTracker 记录每个列表最近一次加载的结果
type listTracker struct {
	mu    sync.RWMutex
	lists map[string]*ListStatus
}

func newListTracker() *listTracker {
	return &listTracker{
		lists: make(map[string]*ListStatus),
	}
}

// getOrCreate 调用方需持有写锁
func (t *listTracker) getOrCreate(name string) *ListStatus {
	s, ok := t.lists[name]
	if !ok {
		category, _ := CategoryForList(name)
		s = &ListStatus{
			Name:     name,
			Category: category,
		}
		t.lists[name] = s
	}

	return s
}

// markLoaded 将 list 中的所有列表标记为已加载
func (t *listTracker) markLoaded(list *blocklist.BlockList, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, name := range list.Names() {
		s := t.getOrCreate(name)
		s.LastUpdate = at
		s.RuleCount = list.RuleCount(name)
		s.Status = listStatusActive
		s.LastError = ""
		s.FailCount = 0
	}
}

// markFailed 记录编译失败。只有能定位到具体列表的错误才会记录
func (t *listTracker) markFailed(err error, at time.Time) {
	var listErr *blocklist.ListError
	if !errors.As(err, &listErr) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.getOrCreate(listErr.Name)
	s.LastUpdate = at
	s.LastError = listErr.Err.Error()
	s.FailCount++
	s.Status = listStatusFailed
}

// get 返回指定列表的状态副本
func (t *listTracker) get(name string) (s ListStatus, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.lists[name]
	if !ok {
		return ListStatus{}, false
	}

	return *p, true
}

// statuses 返回所有列表的状态，按名称排序
func (t *listTracker) statuses() []ListStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	statuses := make([]ListStatus, 0, len(t.lists))
	for _, s := range t.lists {
		statuses = append(statuses, *s)
	}

	slices.SortFunc(statuses, func(a, b ListStatus) int {
		return strings.Compare(a.Name, b.Name)
	})

	return statuses
}

// failed 返回最近一次加载失败的列表名
func (t *listTracker) failed() (names []string) {
	for _, s := range t.statuses() {
		if s.Status == listStatusFailed {
			names = append(names, s.Name)
		}
	}

	return names
}
