package interceptor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"contentblocker/blocklist"

	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// newTestChecker blocks third-party requests to ads.example.com.
func newTestChecker(t *testing.T) Checker {
	t.Helper()

	list, err := blocklist.Compile(context.Background(), blocklist.StaticLoader{
		"ads": []byte(`[{"trigger": {"url-filter": "^https?://ads\\.example\\.com/", "load-type": ["third-party"]}}]`),
	}, []string{"ads"})
	require.NoError(t, err)

	return CheckerFunc(func(resourceURL, mainDocumentURL string) blocklist.Result {
		return blocklist.Match(list, resourceURL, mainDocumentURL)
	})
}

func TestTransportBlocked(t *testing.T) {
	var calls atomic.Int32
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)

		return nil, assert.AnError
	})

	tr := NewTransport(base, newTestChecker(t), "")

	req := httptest.NewRequest(http.MethodGet, "https://ads.example.com/banner.js", nil)
	req.Header.Set(DefaultMainDocumentHeader, "https://news.example.org/")

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get(httphdr.ContentLength))
	assert.Equal(t, int64(0), resp.ContentLength)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTransportForwarded(t *testing.T) {
	var got *http.Request
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		got = req

		return &http.Response{StatusCode: http.StatusTeapot, Body: http.NoBody}, nil
	})

	tr := NewTransport(base, newTestChecker(t), "x-main-document-url")

	// First-party request to the listed host.
	req := httptest.NewRequest(http.MethodGet, "https://ads.example.com/self.js", nil)
	req.Header.Set(DefaultMainDocumentHeader, "https://ads.example.com/")

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	require.NotNil(t, got)
	assert.Equal(t, "1", got.Header.Get(httphdr.DNT))
	assert.Empty(t, got.Header.Get(DefaultMainDocumentHeader))

	// The caller's request is left as is.
	assert.Empty(t, req.Header.Get(httphdr.DNT))
	assert.Equal(t, "https://ads.example.com/", req.Header.Get(DefaultMainDocumentHeader))
}

func TestMainDocumentURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://cdn.example.com/app.js", nil)
	assert.Equal(t, "https://cdn.example.com/app.js", MainDocumentURL(req, DefaultMainDocumentHeader))

	req.Header.Set(httphdr.Referer, "https://news.example.org/")
	assert.Equal(t, "https://news.example.org/", MainDocumentURL(req, DefaultMainDocumentHeader))

	req.Header.Set(DefaultMainDocumentHeader, "https://app.example.net/")
	assert.Equal(t, "https://app.example.net/", MainDocumentURL(req, DefaultMainDocumentHeader))
}

func TestTransportRefererFallback(t *testing.T) {
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody}, nil
	})

	tr := NewTransport(base, newTestChecker(t), "")

	req := httptest.NewRequest(http.MethodGet, "https://ads.example.com/banner.js", nil)
	req.Header.Set(httphdr.Referer, "https://news.example.org/")

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A navigation to the listed host is first party.
	req = httptest.NewRequest(http.MethodGet, "https://ads.example.com/", nil)
	resp, err = tr.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Dnt", r.Header.Get(httphdr.DNT))
		_, _ = io.WriteString(w, "hello")
	}))
	t.Cleanup(upstream.Close)

	upstreamURL, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	checker := CheckerFunc(func(resourceURL, _ string) blocklist.Result {
		if strings.HasSuffix(resourceURL, "/blocked") {
			return blocklist.Result{Verdict: blocklist.Blocked, Rule: &blocklist.BlockRule{List: "test"}}
		}

		return blocklist.Result{}
	})

	proxy := httptest.NewServer(NewProxy(NewTransport(nil, checker, "")))
	t.Cleanup(proxy.Close)

	proxyURL, err := url.Parse(proxy.URL)
	require.NoError(t, err)

	client := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}

	resp, err := client.Get(upstream.URL + "/page")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "1", resp.Header.Get("X-Seen-Dnt"))

	resp, err = client.Get("http://" + upstreamURL.Host + "/blocked")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)
	assert.Empty(t, resp.Header.Get("X-Seen-Dnt"))
}

func TestProxyRejects(t *testing.T) {
	p := NewProxy(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Fatal("unexpected round trip")

		return nil, nil
	}))

	rw := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodConnect, "http://example.com:443", nil)
	p.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rw.Code)

	rw = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/relative", nil)
	p.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestProxyStripsHopHeaders(t *testing.T) {
	var got http.Header
	p := NewProxy(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		got = req.Header

		return &http.Response{
			StatusCode: http.StatusOK,
			Header: http.Header{
				"Keep-Alive":   {"timeout=5"},
				"Content-Type": {"text/plain"},
			},
			Body: io.NopCloser(strings.NewReader("ok")),
		}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.Header.Set("Connection", "X-Private")
	req.Header.Set("X-Private", "secret")
	req.Header.Set("Proxy-Authorization", "Basic Zm9vOmJhcg==")
	req.Header.Set("Accept", "*/*")

	rw := httptest.NewRecorder()
	p.ServeHTTP(rw, req)

	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "ok", rw.Body.String())
	assert.Empty(t, rw.Header().Get("Keep-Alive"))
	assert.Equal(t, "text/plain", rw.Header().Get("Content-Type"))

	require.NotNil(t, got)
	assert.Empty(t, got.Get("Connection"))
	assert.Empty(t, got.Get("X-Private"))
	assert.Empty(t, got.Get("Proxy-Authorization"))
	assert.Equal(t, "*/*", got.Get("Accept"))
}

func TestProxyBadGateway(t *testing.T) {
	p := NewProxy(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, assert.AnError
	}))

	rw := httptest.NewRecorder()
	p.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	assert.Equal(t, http.StatusBadGateway, rw.Code)
}
