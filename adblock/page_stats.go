package adblock

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// PageStats 单个页面的拦截计数，值类型不可变，Adding 返回新值
type PageStats struct {
	Ads       int `json:"ads"`
	Analytics int `json:"analytics"`
	Content   int `json:"content"`
	Social    int `json:"social"`
}

// Total returns the number of requests blocked on the page.
func (s PageStats) Total() int {
	return s.Ads + s.Analytics + s.Content + s.Social
}

// Adding returns a copy of s with one more request blocked in c.  Fonts and
// lists without a category aren't counted.
func (s PageStats) Adding(c Category) PageStats {
	switch c {
	case CategoryAdvertising:
		s.Ads++
	case CategoryAnalytics:
		s.Analytics++
	case CategoryContent:
		s.Content++
	case CategorySocial:
		s.Social++
	}

	return s
}

// pageStatsCache 按主文档 URL 保存页面统计，超出容量时淘汰最久未使用的页面
type pageStatsCache struct {
	mu    sync.Mutex
	pages *lru.Cache
}

func newPageStatsCache(size int) (*pageStatsCache, error) {
	pages, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &pageStatsCache{pages: pages}, nil
}

func (c *pageStatsCache) add(mainDocumentURL string, category Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, _ := c.get(mainDocumentURL)
	c.pages.Add(mainDocumentURL, stats.Adding(category))
}

func (c *pageStatsCache) get(mainDocumentURL string) (stats PageStats, ok bool) {
	v, ok := c.pages.Get(mainDocumentURL)
	if !ok {
		return PageStats{}, false
	}

	return v.(PageStats), true
}

func (c *pageStatsCache) lookup(mainDocumentURL string) (stats PageStats, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.get(mainDocumentURL)
}

func (c *pageStatsCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pages.Purge()
}
