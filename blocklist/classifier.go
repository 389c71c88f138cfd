package blocklist

import (
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/dlclark/regexp2"
)

// fontExtensions are the path extensions a font rule applies to.
var fontExtensions = []string{"woff", "woff2", "ttf"}

// Classify returns the verdict for a request of resourceURL issued by the
// page at mainDocumentURL.
func Classify(list *BlockList, resourceURL, mainDocumentURL string) (v Verdict) {
	return Match(list, resourceURL, mainDocumentURL).Verdict
}

// Match evaluates the request against list and returns the verdict together
// with the blocking rule.  Requests whose URLs don't parse as absolute URLs
// with a host are allowed.
func Match(list *BlockList, resourceURL, mainDocumentURL string) (res Result) {
	if list.Len() == 0 {
		return Result{Verdict: Allowed}
	}

	resource, ok := parseAbsolute(resourceURL)
	if !ok {
		return Result{Verdict: Allowed}
	}

	document, ok := parseAbsolute(mainDocumentURL)
	if !ok {
		return Result{Verdict: Allowed}
	}

	documentHost := document.Hostname()
	isFont := slices.Contains(fontExtensions, pathExtension(resource))

	for _, rule := range list.rules {
		if rule.ResourceType == ResourceTypeFont && !isFont {
			continue
		}

		if !matches(rule.pattern, resourceURL) {
			continue
		}

		// Same pattern matching the page means a first-party load.
		if rule.LoadType == LoadTypeThirdParty && matches(rule.pattern, mainDocumentURL) {
			continue
		}

		if rule.isExcepted(documentHost) {
			continue
		}

		return Result{Rule: rule, Verdict: Blocked}
	}

	return Result{Verdict: Allowed}
}

// isExcepted reports whether any unless-domain pattern of the rule matches
// host.
func (r *BlockRule) isExcepted(host string) (ok bool) {
	for _, re := range r.domainExceptions {
		if matches(re, host) {
			return true
		}
	}

	return false
}

// matches reports whether re matches s.  Timeouts count as no match.
func matches(re *regexp2.Regexp, s string) (ok bool) {
	ok, err := re.MatchString(s)

	return err == nil && ok
}

// parseAbsolute parses rawURL and requires a scheme and a host.
func parseAbsolute(rawURL string) (u *url.URL, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Hostname() == "" {
		return nil, false
	}

	return u, true
}

// pathExtension returns the extension of the last path component without the
// leading dot.
func pathExtension(u *url.URL) (ext string) {
	return strings.TrimPrefix(path.Ext(u.Path), ".")
}
