package interceptor

import (
	"io"
	"net/http"
	"strings"

	"contentblocker/logger"

	"github.com/AdguardTeam/golibs/httphdr"
)

// hopHeaders are removed from requests and responses passing the proxy.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	httphdr.Trailer,
	httphdr.TransferEncoding,
	"Upgrade",
}

// Proxy 是基于 Transport 的 HTTP 正向代理。
// CONNECT 隧道中的请求无法逐个分类，因此不支持
type Proxy struct {
	transport http.RoundTripper
}

// NewProxy returns a forward proxy sending requests through transport.
func NewProxy(transport http.RoundTripper) *Proxy {
	return &Proxy{transport: transport}
}

// ServeHTTP implements the http.Handler interface for *Proxy.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		http.Error(w, "CONNECT is not supported", http.StatusMethodNotAllowed)

		return
	}

	if !r.URL.IsAbs() || r.URL.Host == "" {
		http.Error(w, "absolute-form request target required", http.StatusBadRequest)

		return
	}

	out := r.Clone(r.Context())
	out.RequestURI = ""
	if r.ContentLength == 0 {
		out.Body = nil
	}
	removeHopHeaders(out.Header)

	resp, err := p.transport.RoundTrip(out)
	if err != nil {
		logger.Warnf("[Proxy] %s %s: %v", r.Method, r.URL, err)
		http.Error(w, "bad gateway", http.StatusBadGateway)

		return
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debugf("[Proxy] closing response body: %v", cerr)
		}
	}()

	removeHopHeaders(resp.Header)
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err = io.Copy(w, resp.Body); err != nil {
		logger.Debugf("[Proxy] copying response of %s: %v", r.URL, err)
	}
}

// removeHopHeaders 删除逐跳头，包括 Connection 中列出的头
func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}

	for _, name := range hopHeaders {
		h.Del(name)
	}
}
