package stats

import (
	"container/heap"
	"strings"
	"sync"

	util "contentblocker/internal"

	iradix "github.com/hashicorp/go-immutable-radix"
)

// BlockedHostCount 用于排序的结构体
type BlockedHostCount struct {
	Host  string `json:"host"`
	Count int64  `json:"count"`
}

// BlockedHosts 记录被拦截的主机名及次数。
// 主机名按标签反转后存入基数树，便于按父域名汇总
type BlockedHosts struct {
	mu       sync.Mutex
	tree     *iradix.Tree
	maxHosts int
}

// NewBlockedHosts 创建被拦截主机追踪器，maxHosts <= 0 表示不限制
func NewBlockedHosts(maxHosts int) *BlockedHosts {
	return &BlockedHosts{
		tree:     iradix.New(),
		maxHosts: maxHosts,
	}
}

// hostKey "ads.example.com" -> "com.example.ads."
func hostKey(host string) []byte {
	return []byte(util.ReverseDomain(host) + ".")
}

func keyHost(key []byte) string {
	return util.ReverseDomain(strings.TrimSuffix(string(key), "."))
}

// Record 记录一次拦截，达到上限后不再记录新主机
func (b *BlockedHosts) Record(host string) {
	host = util.NormalizeHost(host)
	if host == "" {
		return
	}

	key := hostKey(host)

	b.mu.Lock()
	defer b.mu.Unlock()

	var count int64
	if v, ok := b.tree.Get(key); ok {
		count = v.(int64)
	} else if b.maxHosts > 0 && b.tree.Len() >= b.maxHosts {
		return
	}

	b.tree, _, _ = b.tree.Insert(key, count+1)
}

// snapshot 返回当前树，树本身不可变，读取无需持锁
func (b *BlockedHosts) snapshot() *iradix.Tree {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tree
}

// Count 返回 domain 及其所有子域名被拦截的总次数
func (b *BlockedHosts) Count(domain string) int64 {
	domain = util.NormalizeHost(domain)
	if domain == "" {
		return 0
	}

	var total int64
	b.snapshot().Root().WalkPrefix(hostKey(domain), func(_ []byte, v interface{}) bool {
		total += v.(int64)

		return false
	})

	return total
}

// Len 返回已记录的主机数
func (b *BlockedHosts) Len() int {
	return b.snapshot().Len()
}

// Top 获取被拦截最多的 k 个主机
func (b *BlockedHosts) Top(k int) []BlockedHostCount {
	if k <= 0 {
		return nil
	}

	// Use MinHeap to find Top-K
	h := &blockedMinHeap{}
	heap.Init(h)

	b.snapshot().Root().Walk(func(key []byte, v interface{}) bool {
		entry := BlockedHostCount{Host: keyHost(key), Count: v.(int64)}
		if h.Len() < k {
			heap.Push(h, entry)
		} else if top := (*h)[0]; entry.Count > top.Count || (entry.Count == top.Count && entry.Host < top.Host) {
			heap.Pop(h)
			heap.Push(h, entry)
		}

		return false
	})

	// Convert to sorted array (descending)
	result := make([]BlockedHostCount, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(BlockedHostCount)
	}

	return result
}

// Reset 清空记录
func (b *BlockedHosts) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tree = iradix.New()
}

// blockedMinHeap implementation
type blockedMinHeap []BlockedHostCount

func (h blockedMinHeap) Len() int { return len(h) }
func (h blockedMinHeap) Less(i, j int) bool {
	if h[i].Count != h[j].Count {
		return h[i].Count < h[j].Count
	}
	return h[i].Host > h[j].Host // Higher host is "smaller/worse" in min-heap
}
func (h blockedMinHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *blockedMinHeap) Push(x interface{}) {
	*h = append(*h, x.(BlockedHostCount))
}

func (h *blockedMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
