package blocklist

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"golang.org/x/sync/errgroup"
)

// DefaultMatchTimeout bounds a single pattern evaluation.  A match that
// times out counts as no match.
const DefaultMatchTimeout = 100 * time.Millisecond

const (
	loadTypeThirdParty = "third-party"
	resourceTypeFont   = "font"
)

// ruleObject is a content-blocker JSON rule.  The action object is ignored,
// every rule blocks.
type ruleObject struct {
	Trigger *triggerObject `json:"trigger"`
}

// triggerObject is the trigger of a content-blocker JSON rule.  Optional keys
// are kept raw since values that aren't string arrays are treated as absent.
type triggerObject struct {
	URLFilter    *string         `json:"url-filter"`
	LoadType     json.RawMessage `json:"load-type"`
	ResourceType json.RawMessage `json:"resource-type"`
	UnlessDomain json.RawMessage `json:"unless-domain"`
}

// Compiler turns named content-blocker lists into a BlockList.
type Compiler struct {
	Loader Loader

	// MatchTimeout is set on every compiled expression.  Zero means
	// DefaultMatchTimeout.
	MatchTimeout time.Duration
}

// Compile compiles the named lists with a default Compiler.
func Compile(ctx context.Context, loader Loader, names []string) (*BlockList, error) {
	c := &Compiler{Loader: loader}

	return c.Compile(ctx, names)
}

// Compile loads and compiles the named lists.  Lists are parsed concurrently
// but rules keep their order: lists in the order given, rules in document
// order.  Any missing list, malformed document or bad pattern fails the
// whole compilation.
func (c *Compiler) Compile(ctx context.Context, names []string) (list *BlockList, err error) {
	names = uniqueNames(names)
	perList := make([][]*BlockRule, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		i, name := i, name
		g.Go(func() (err error) {
			if err = gctx.Err(); err != nil {
				return err
			}

			data, err := c.Loader.Load(name)
			if err != nil {
				return &ListError{Name: name, Err: fmt.Errorf("loading list %q: %w", name, err)}
			}

			perList[i], err = c.parse(name, data)
			if err != nil {
				return &ListError{Name: name, Err: fmt.Errorf("compiling list %q: %w", name, err)}
			}

			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, err
	}

	list = &BlockList{
		names:  names,
		counts: make(map[string]int, len(names)),
	}
	for i, rules := range perList {
		list.rules = append(list.rules, rules...)
		list.counts[names[i]] = len(rules)
	}

	return list, nil
}

// parse compiles the rules of one list document.
func (c *Compiler) parse(name string, data []byte) (rules []*BlockRule, err error) {
	var objects []ruleObject
	if err = json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedList, err)
	} else if objects == nil {
		return nil, fmt.Errorf("%w: not a rule array", ErrMalformedList)
	}

	rules = make([]*BlockRule, 0, len(objects))
	for i, obj := range objects {
		var rule *BlockRule
		rule, err = c.compileRule(obj)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}

		rule.List = name
		rule.Index = i
		rules = append(rules, rule)
	}

	return rules, nil
}

// compileRule compiles a single rule object.
func (c *Compiler) compileRule(obj ruleObject) (rule *BlockRule, err error) {
	if obj.Trigger == nil {
		return nil, fmt.Errorf("%w: no trigger", ErrMalformedList)
	}

	trigger := obj.Trigger
	if trigger.URLFilter == nil {
		return nil, fmt.Errorf("%w: no url-filter", ErrMalformedList)
	}

	pattern, err := c.compileAnchored(*trigger.URLFilter)
	if err != nil {
		return nil, err
	}

	rule = &BlockRule{
		pattern:      pattern,
		Filter:       *trigger.URLFilter,
		LoadType:     LoadTypeAll,
		ResourceType: ResourceTypeAll,
	}

	// 只支持 "third-party" 和 "font"，其它取值在内置列表中不会出现
	if slices.Contains(stringArray(trigger.LoadType), loadTypeThirdParty) {
		rule.LoadType = LoadTypeThirdParty
	}
	if slices.Contains(stringArray(trigger.ResourceType), resourceTypeFont) {
		rule.ResourceType = ResourceTypeFont
	}

	for _, domain := range stringArray(trigger.UnlessDomain) {
		var re *regexp2.Regexp
		re, err = c.compile(domainExceptionPattern(domain))
		if err != nil {
			return nil, fmt.Errorf("unless-domain %q: %w", domain, err)
		}

		rule.domainExceptions = append(rule.domainExceptions, re)
	}

	return rule, nil
}

// compileAnchored compiles expr so that it only matches at the start of the
// input.  The end of the input isn't anchored.
func (c *Compiler) compileAnchored(expr string) (re *regexp2.Regexp, err error) {
	// Validate on its own first, wrapping could balance stray parentheses.
	if _, err = c.compile(expr); err != nil {
		return nil, err
	}

	return c.compile(`\A(?:` + expr + `)`)
}

// compile compiles expr with the ICU-compatible default options.
func (c *Compiler) compile(expr string) (re *regexp2.Regexp, err error) {
	re, err = regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBadPattern, expr, err)
	}

	re.MatchTimeout = c.MatchTimeout
	if re.MatchTimeout <= 0 {
		re.MatchTimeout = DefaultMatchTimeout
	}

	return re, nil
}

// domainExceptionPattern converts an unless-domain entry into a suffix
// pattern for the document host.  "*.example.com" becomes
// `\.*\.example\.com$`.
func domainExceptionPattern(domain string) (expr string) {
	expr = domain + "$"
	if strings.HasPrefix(expr, "*") {
		expr = "." + expr
	}

	return strings.ReplaceAll(expr, ".", `\.`)
}

// stringArray decodes raw as an array of strings.  Anything else, including
// absence, yields nil.
func stringArray(raw json.RawMessage) (values []string) {
	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}

	return values
}

// uniqueNames returns names without duplicates, keeping first occurrences.
func uniqueNames(names []string) (unique []string) {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}
		unique = append(unique, name)
	}

	return unique
}
