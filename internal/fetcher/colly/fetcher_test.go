package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/product-data-explorer/internal/scraper"
)

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	seen := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Clone()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{Timeout: time.Second})
	resp, err := f.Fetch(context.Background(), scraper.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(resp.Body), "ok")
	headers := <-seen
	require.Equal(t, DefaultUserAgent, headers.Get("User-Agent"))
	require.Equal(t, DefaultAccept, headers.Get("Accept"))
	require.Equal(t, DefaultAcceptLanguage, headers.Get("Accept-Language"))
}

func TestFetchRevisitsSameURL(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("again"))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{Timeout: time.Second})
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), scraper.FetchRequest{URL: srv.URL})
		require.NoError(t, err)
	}
	require.Equal(t, int32(2), hits.Load())
}

func TestFetchClassifiesStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		kind   scraper.ErrorKind
	}{
		{name: "server", status: http.StatusServiceUnavailable, kind: scraper.KindUpstreamServerError},
		{name: "client", status: http.StatusNotFound, kind: scraper.KindUpstreamClientError},
		{name: "forbidden", status: http.StatusForbidden, kind: scraper.KindUpstreamClientError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			t.Cleanup(srv.Close)

			_, err := New(Config{Timeout: time.Second}).Fetch(context.Background(), scraper.FetchRequest{URL: srv.URL})
			var fe *scraper.FetchError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tc.kind, fe.Kind)
			require.Equal(t, tc.status, fe.StatusCode)
		})
	}
}

func TestFetchRejectsRedirectToForeignHost(t *testing.T) {
	t.Parallel()

	var privateHits atomic.Int32
	private := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		privateHits.Add(1)
		_, _ = w.Write([]byte("<html>secret</html>"))
	}))
	t.Cleanup(private.Close)
	target, err := url.Parse(private.URL)
	require.NoError(t, err)
	target.Host = "localhost:" + target.Port()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.String()+"/meta", http.StatusFound)
	}))
	t.Cleanup(upstream.Close)

	f := New(Config{Timeout: time.Second, AllowedHosts: []string{"127.0.0.1"}})
	resp, err := f.Fetch(context.Background(), scraper.FetchRequest{URL: upstream.URL})
	require.ErrorIs(t, err, ErrRedirectNotAllowed)
	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	require.False(t, fe.Transient())
	require.Empty(t, resp.Body)
	require.Equal(t, int32(0), privateHits.Load())
}

func TestFetchFollowsRedirectWithinAllowedHosts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
			return
		}
		_, _ = w.Write([]byte("moved here"))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{Timeout: time.Second, AllowedHosts: []string{"127.0.0.1"}})
	resp, err := f.Fetch(context.Background(), scraper.FetchRequest{URL: srv.URL + "/old"})
	require.NoError(t, err)
	require.Equal(t, "moved here", string(resp.Body))
}

func TestRedirectPolicy(t *testing.T) {
	t.Parallel()

	req := func(raw string) *http.Request {
		r, err := http.NewRequest(http.MethodGet, raw, nil)
		require.NoError(t, err)
		return r
	}
	via := []*http.Request{req("https://www.wob.com/a")}

	allowed := redirectPolicy([]string{"www.wob.com", "wob.com"})
	require.NoError(t, allowed(req("https://wob.com/b"), via))
	require.ErrorIs(t, allowed(req("http://169.254.169.254/latest"), via), ErrRedirectNotAllowed)
	require.ErrorIs(t, allowed(req("ftp://www.wob.com/b"), via), ErrRedirectNotAllowed)

	open := redirectPolicy(nil)
	require.NoError(t, open(req("http://anywhere.example/"), via))

	long := make([]*http.Request, maxRedirects)
	require.Error(t, open(req("https://www.wob.com/c"), long))
}

func TestFetchConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(Config{Timeout: time.Second}).Fetch(context.Background(), scraper.FetchRequest{URL: addr})
	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scraper.KindConnectionRefused, fe.Kind)
	require.True(t, fe.Transient())
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	_, err := New(Config{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), scraper.FetchRequest{URL: srv.URL})
	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scraper.KindTimeout, fe.Kind)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	req := scraper.FetchRequest{
		URL:     "https://www.wob.com",
		Headers: http.Header{"Accept-Language": {"en-GB"}, "X-Trace": {"yes"}},
	}
	var (
		result   scraper.FetchResponse
		status   int
		fetchErr error
	)
	hooks := &stubHooks{}
	configureCollectorHooks(hooks, req, time.Unix(0, 0), &result, &status, &fetchErr)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	require.Equal(t, "yes", collyReq.Headers.Get("X-Trace"))
	require.Equal(t, "en-GB", collyReq.Headers.Get("Accept-Language"))
	require.Equal(t, DefaultAccept, collyReq.Headers.Get("Accept"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://www.wob.com")},
	})
	require.Equal(t, http.StatusCreated, result.StatusCode)
	require.Equal(t, "body", string(result.Body))
	require.Equal(t, "ok", result.Headers.Get("X-Resp"))

	hooks.onError(&colly.Response{StatusCode: http.StatusBadGateway}, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
	require.Equal(t, http.StatusBadGateway, status)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
