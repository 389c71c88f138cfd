package blocklist

import (
	"github.com/dlclark/regexp2"
)

// LoadType 限定规则适用的加载类型
type LoadType int

const (
	LoadTypeAll        LoadType = iota // 所有请求
	LoadTypeThirdParty                 // 仅第三方请求
)

// String implements the fmt.Stringer interface for LoadType.
func (t LoadType) String() string {
	if t == LoadTypeThirdParty {
		return "third-party"
	}
	return "all"
}

// ResourceType 限定规则适用的资源类型
type ResourceType int

const (
	ResourceTypeAll  ResourceType = iota // 所有资源
	ResourceTypeFont                     // 仅字体 (woff, woff2, ttf)
)

// String implements the fmt.Stringer interface for ResourceType.
func (t ResourceType) String() string {
	if t == ResourceTypeFont {
		return "font"
	}
	return "all"
}

// Verdict 是请求分类结果
type Verdict int

const (
	Allowed Verdict = iota
	Blocked
)

// String implements the fmt.Stringer interface for Verdict.
func (v Verdict) String() string {
	if v == Blocked {
		return "blocked"
	}
	return "allowed"
}

// BlockRule 表示一条编译后的拦截规则，构造后不可修改
type BlockRule struct {
	pattern          *regexp2.Regexp
	domainExceptions []*regexp2.Regexp

	// List 是规则来源的列表名
	List string
	// Filter 是原始 url-filter 文本
	Filter string
	// Index 是规则在其列表中的位置
	Index int

	LoadType     LoadType
	ResourceType ResourceType
}

// ExceptionCount returns the number of unless-domain entries of the rule.
func (r *BlockRule) ExceptionCount() int {
	return len(r.domainExceptions)
}

// BlockList is an ordered, immutable sequence of rules.  Rules are evaluated
// in order and the first matching, non-excepted rule blocks the request.
type BlockList struct {
	rules  []*BlockRule
	names  []string
	counts map[string]int
}

// Len returns the number of rules in the list.  It is safe to call on a nil
// list.
func (l *BlockList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.rules)
}

// Names returns the names of the lists the rules were compiled from, in
// compilation order.
func (l *BlockList) Names() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.names...)
}

// RuleCount returns the number of rules contributed by the named list.
func (l *BlockList) RuleCount(name string) int {
	if l == nil {
		return 0
	}
	return l.counts[name]
}

// Rule returns the i-th rule of the list.
func (l *BlockList) Rule(i int) *BlockRule {
	return l.rules[i]
}

// Result 是带有命中规则的分类结果
type Result struct {
	// Rule is the rule that blocked the request.  It is nil when the request
	// is allowed.
	Rule    *BlockRule
	Verdict Verdict
}

// IsBlocked reports whether the request was blocked.
func (r Result) IsBlocked() bool {
	return r.Verdict == Blocked
}
