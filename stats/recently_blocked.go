package stats

import (
	"sync"
	"time"
)

// defaultRecentlyBlockedSize 最近拦截记录的条数
const defaultRecentlyBlockedSize = 20

// BlockedRequest 一次被拦截的请求
type BlockedRequest struct {
	Time     time.Time `json:"time"`
	Host     string    `json:"host"`
	Category string    `json:"category"`
}

// RecentlyBlocked 保存最近被拦截的请求，超出容量时丢弃最旧的记录
type RecentlyBlocked struct {
	mu      sync.RWMutex
	entries []BlockedRequest
	maxSize int
}

// NewRecentlyBlocked creates a tracker keeping at most maxSize requests.
func NewRecentlyBlocked(maxSize int) *RecentlyBlocked {
	if maxSize <= 0 {
		maxSize = defaultRecentlyBlockedSize
	}

	return &RecentlyBlocked{
		entries: make([]BlockedRequest, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add 追加一条记录到末尾（最新）
func (r *RecentlyBlocked) Add(req BlockedRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, req)
	if len(r.entries) > r.maxSize {
		r.entries = r.entries[len(r.entries)-r.maxSize:]
	}
}

// GetAll returns a copy of the tracked requests, newest first.
func (r *RecentlyBlocked) GetAll() []BlockedRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]BlockedRequest, len(r.entries))
	for i, e := range r.entries {
		result[len(r.entries)-1-i] = e
	}

	return result
}

// Clear 清空记录
func (r *RecentlyBlocked) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make([]BlockedRequest, 0, r.maxSize)
}

// Len returns the number of tracked requests.
func (r *RecentlyBlocked) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
