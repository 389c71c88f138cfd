package stats

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"contentblocker/logger"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// defaultMaxBlockedHosts 被拦截主机追踪的上限
const defaultMaxBlockedHosts = 10000

// Stats 运行统计
type Stats struct {
	mu       sync.RWMutex
	requests int64
	blocked  int64

	// 按拦截分类统计
	categories map[string]*int64

	// 被拦截主机追踪
	blockedHosts *BlockedHosts
	recent       *RecentlyBlocked

	// 启动时间
	startTime time.Time
}

// cpuPercent 返回自上次调用以来的整机 CPU 使用率，interval 为 0 时不阻塞
var cpuPercent = func() ([]float64, error) {
	return cpu.Percent(0, false)
}

// NewStats 创建新的统计实例
func NewStats() *Stats {
	// 设置 CPU 使用率的起点，之后每次读取都基于上一次
	if _, err := cpuPercent(); err != nil {
		logger.Warnf("无法初始化 CPU 使用率统计: %v", err)
	}

	return &Stats{
		categories:   make(map[string]*int64),
		blockedHosts: NewBlockedHosts(defaultMaxBlockedHosts),
		recent:       NewRecentlyBlocked(defaultRecentlyBlockedSize),
		startTime:    time.Now(),
	}
}

// RecordRequest 记录一次请求分类结果，category 仅在拦截时有意义
func (s *Stats) RecordRequest(host string, blocked bool, category string) {
	atomic.AddInt64(&s.requests, 1)
	if !blocked {
		return
	}

	atomic.AddInt64(&s.blocked, 1)
	atomic.AddInt64(s.getOrCreateCounter(category), 1)
	s.blockedHosts.Record(host)
	s.recent.Add(BlockedRequest{Time: time.Now(), Host: host, Category: category})
}

// getOrCreateCounter 安全地获取或创建计数器
func (s *Stats) getOrCreateCounter(category string) *int64 {
	s.mu.RLock()
	counter, ok := s.categories[category]
	s.mu.RUnlock()

	if ok {
		return counter
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 再次检查，防止在获取写锁期间其他 goroutine 已经创建
	if counter, ok := s.categories[category]; ok {
		return counter
	}
	newCounter := int64(0)
	s.categories[category] = &newCounter
	return &newCounter
}

// CategoryCounts 返回各分类的拦截次数
func (s *Stats) CategoryCounts() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64, len(s.categories))
	for category, counter := range s.categories {
		counts[category] = atomic.LoadInt64(counter)
	}

	return counts
}

// GetTopBlockedHosts 获取被拦截最多的主机
func (s *Stats) GetTopBlockedHosts(limit int) []BlockedHostCount {
	return s.blockedHosts.Top(limit)
}

// BlockedUnder 返回 domain 及其子域名的拦截次数
func (s *Stats) BlockedUnder(domain string) int64 {
	return s.blockedHosts.Count(domain)
}

// GetStats 获取所有统计数据
func (s *Stats) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&s.requests)
	blocked := atomic.LoadInt64(&s.blocked)

	var blockRate float64
	if requests > 0 {
		blockRate = float64(blocked) / float64(requests) * 100
	}

	return map[string]interface{}{
		"total_requests":    requests,
		"blocked_requests":  blocked,
		"block_rate":        blockRate,
		"categories":        s.CategoryCounts(),
		"top_blocked_hosts": s.GetTopBlockedHosts(10),
		"blocked_hosts":     s.blockedHosts.Len(),
		"recently_blocked":  s.recent.GetAll(),
		"system_stats":      systemStats(),
		"uptime_seconds":    time.Since(s.startTime).Seconds(),
	}
}

// systemStats 获取系统状态 (使用 gopsutil)
func systemStats() map[string]interface{} {
	var cpuUsage float64
	if usage, err := cpuPercent(); err != nil || len(usage) == 0 {
		logger.Warnf("无法获取 CPU 使用率: %v", err)
	} else {
		cpuUsage = usage[0]
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		logger.Warnf("无法获取内存信息: %v", err)
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	sysStats := map[string]interface{}{
		"cpu_cores":       runtime.NumCPU(),
		"cpu_usage_pct":   cpuUsage,
		"mem_total_mb":    uint64(0),
		"mem_used_mb":     uint64(0),
		"mem_usage_pct":   0.0,
		"go_mem_alloc_mb": memStats.Alloc / 1024 / 1024,
		"goroutines":      runtime.NumGoroutine(),
	}
	if memInfo != nil {
		sysStats["mem_total_mb"] = memInfo.Total / 1024 / 1024
		sysStats["mem_used_mb"] = memInfo.Used / 1024 / 1024
		sysStats["mem_usage_pct"] = memInfo.UsedPercent
	}

	return sysStats
}

// Reset 重置统计
func (s *Stats) Reset() {
	atomic.StoreInt64(&s.requests, 0)
	atomic.StoreInt64(&s.blocked, 0)

	s.mu.Lock()
	s.categories = make(map[string]*int64)
	s.mu.Unlock()

	s.blockedHosts.Reset()
	s.recent.Clear()
}

// RecentlyBlocked 返回最近被拦截的请求，最新的在前
func (s *Stats) RecentlyBlocked() []BlockedRequest {
	return s.recent.GetAll()
}
