package adblock

import (
	"time"

	"contentblocker/blocklist"

	lru "github.com/hashicorp/golang-lru"
)

const (
	// DefaultPageStatsSize 默认保存统计的页面数
	DefaultPageStatsSize = 256

	// DefaultVerdictCacheSize 默认判定缓存条数
	DefaultVerdictCacheSize = 4096
)

// Options 管理器选项
type Options struct {
	// Recorder receives the outcome of every Check.  It may be nil.
	Recorder Recorder

	// MatchTimeout bounds a single pattern evaluation, see
	// blocklist.Compiler.
	MatchTimeout time.Duration

	// VerdictCacheSize is the number of verdicts cached per snapshot.
	// Negative disables the cache, zero means DefaultVerdictCacheSize.
	VerdictCacheSize int

	// PageStatsSize is the number of pages tracked for PageStats.  Zero
	// means DefaultPageStatsSize.
	PageStatsSize int
}

// Recorder 记录请求分类结果，category 是拦截规则所属分类，
// 没有分类时为列表名
type Recorder interface {
	RecordRequest(host string, blocked bool, category string)
}

// Snapshot 是一次发布的拦截列表，发布后不再修改
type Snapshot struct {
	CompiledAt time.Time
	List       *blocklist.BlockList

	// verdicts 只缓存本快照的判定结果，随快照一起丢弃
	verdicts *lru.Cache

	Version uint64
}

type verdictKey struct {
	resourceURL     string
	mainDocumentURL string
}

func newSnapshot(list *blocklist.BlockList, cacheSize int) (snap *Snapshot, err error) {
	snap = &Snapshot{
		CompiledAt: time.Now(),
		List:       list,
	}

	if cacheSize > 0 {
		snap.verdicts, err = lru.New(cacheSize)
		if err != nil {
			return nil, err
		}
	}

	return snap, nil
}

// Names returns the names of the lists in the snapshot.
func (s *Snapshot) Names() []string {
	return s.List.Names()
}

// match classifies the request against the snapshot's list.
func (s *Snapshot) match(resourceURL, mainDocumentURL string) blocklist.Result {
	if s.verdicts == nil {
		return blocklist.Match(s.List, resourceURL, mainDocumentURL)
	}

	key := verdictKey{resourceURL: resourceURL, mainDocumentURL: mainDocumentURL}
	if v, ok := s.verdicts.Get(key); ok {
		return v.(blocklist.Result)
	}

	res := blocklist.Match(s.List, resourceURL, mainDocumentURL)
	s.verdicts.Add(key, res)

	return res
}
