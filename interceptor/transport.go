// Package interceptor applies block verdicts to outgoing HTTP requests.
package interceptor

import (
	"net/http"

	"contentblocker/blocklist"
	"contentblocker/logger"

	"github.com/AdguardTeam/golibs/httphdr"
)

// DefaultMainDocumentHeader is the request header carrying the URL of the
// page that initiated the request.
const DefaultMainDocumentHeader = "X-Main-Document-Url"

// Checker classifies a request.
type Checker interface {
	Check(resourceURL, mainDocumentURL string) blocklist.Result
}

// CheckerFunc is a function implementing Checker.
type CheckerFunc func(resourceURL, mainDocumentURL string) blocklist.Result

// Check implements the Checker interface for CheckerFunc.
func (f CheckerFunc) Check(resourceURL, mainDocumentURL string) blocklist.Result {
	return f(resourceURL, mainDocumentURL)
}

// Transport is an http.RoundTripper that answers blocked requests with an
// empty 200 response and forwards the rest with "DNT: 1".
type Transport struct {
	base    http.RoundTripper
	checker Checker
	header  string
}

// NewTransport returns a transport classifying requests with checker.  A nil
// base means http.DefaultTransport, an empty header means
// DefaultMainDocumentHeader.
func NewTransport(base http.RoundTripper, checker Checker, header string) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if header == "" {
		header = DefaultMainDocumentHeader
	}

	return &Transport{
		base:    base,
		checker: checker,
		header:  http.CanonicalHeaderKey(header),
	}
}

// MainDocumentURL returns the URL of the page that initiated req: the value
// of header, then the Referer.  Without either the request is its own main
// document, as for a top-level navigation.
func MainDocumentURL(req *http.Request, header string) string {
	if v := req.Header.Get(header); v != "" {
		return v
	}

	if v := req.Header.Get(httphdr.Referer); v != "" {
		return v
	}

	return req.URL.String()
}

// RoundTrip implements the http.RoundTripper interface for *Transport.
func (t *Transport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	resourceURL := req.URL.String()
	res := t.checker.Check(resourceURL, MainDocumentURL(req, t.header))
	if res.IsBlocked() {
		logger.Debugf("[Proxy] Blocked %s (%s rule %d)", resourceURL, res.Rule.List, res.Rule.Index)

		if req.Body != nil {
			_ = req.Body.Close()
		}

		return blockedResponse(req), nil
	}

	out := req.Clone(req.Context())
	out.Header.Del(t.header)
	out.Header.Set(httphdr.DNT, "1")

	return t.base.RoundTrip(out)
}

// blockedResponse 返回空的 200 响应代替真实请求
func blockedResponse(req *http.Request) *http.Response {
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{httphdr.ContentLength: []string{"0"}},
		Body:          http.NoBody,
		ContentLength: 0,
		Request:       req,
	}
}
