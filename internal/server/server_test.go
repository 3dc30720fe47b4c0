package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

var sourceModified = time.Date(2025, 3, 14, 8, 30, 15, 123_000_000, time.UTC)

func newTestServer() *FeedServer {
	return New("127.0.0.1", "0", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// renderFeed builds a real feed from records so the tests exercise the ICS the bot publishes.
func renderFeed(t *testing.T, modified time.Time, rows ...[]string) engine.Feed {
	t.Helper()
	var records []engine.BirthdayRecord
	for _, row := range rows {
		r, ok := engine.ParseRow(row)
		require.True(t, ok, "row %v", row)
		records = append(records, r)
	}
	cal := &engine.Calendar{Clock: fixedClock{modified}}
	feed, err := cal.Build(records, modified)
	require.NoError(t, err)
	return feed
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func get(h http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// -----------------------------------------------------------------------------
// Feed
// -----------------------------------------------------------------------------

func TestFeed_NotPublishedYet(t *testing.T) {
	h := newTestServer().Handler()

	w := get(h, http.MethodGet, config.RouteCalendar, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, config.RetryAfterSeconds, w.Header().Get(config.HeaderRetryAfter))
}

func TestFeed_ServesPublishedBirthdays(t *testing.T) {
	srv := newTestServer()
	srv.Publish(renderFeed(t, sourceModified, []string{"Ann", "14-03"}, []string{"Bob", "1-06", "@bob"}))
	h := srv.Handler()

	for _, path := range []string{config.RouteRoot, config.RouteCalendar} {
		t.Run(path, func(t *testing.T) {
			w := get(h, http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, w.Code)

			assert.Equal(t, config.MimeTextCalendar, w.Header().Get(config.HeaderContentType))
			assert.Equal(t, config.MimeNoSniff, w.Header().Get(config.HeaderXContentType))
			assert.Equal(t, "2", w.Header().Get(config.HeaderEntries))
			assert.NotEmpty(t, w.Header().Get(config.HeaderETag))

			body := w.Body.String()
			assert.Contains(t, body, "SUMMARY:Ann")
			assert.Contains(t, body, "SUMMARY:Bob (@bob)")
			assert.Contains(t, body, "RRULE:FREQ=YEARLY")
		})
	}
}

func TestFeed_LastModifiedFollowsSource(t *testing.T) {
	srv := newTestServer()
	srv.Publish(renderFeed(t, sourceModified, []string{"Ann", "14-03"}))

	w := get(srv.Handler(), http.MethodGet, config.RouteCalendar, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Fri, 14 Mar 2025 08:30:15 GMT", w.Header().Get(config.HeaderLastModified))
}

func TestFeed_ConditionalRequests(t *testing.T) {
	srv := newTestServer()
	srv.Publish(renderFeed(t, sourceModified, []string{"Ann", "14-03"}))
	h := srv.Handler()

	etag := get(h, http.MethodGet, config.RouteCalendar, nil).Header().Get(config.HeaderETag)
	require.NotEmpty(t, etag)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"Matching ETag", map[string]string{config.HeaderIfNoneMatch: etag}, http.StatusNotModified},
		{"Stale ETag", map[string]string{config.HeaderIfNoneMatch: `"outdated"`}, http.StatusOK},
		{"Copy as new as the source", map[string]string{config.HeaderIfModifiedSince: "Fri, 14 Mar 2025 08:30:15 GMT"}, http.StatusNotModified},
		{"Copy older than the source", map[string]string{config.HeaderIfModifiedSince: "Fri, 14 Mar 2025 08:30:14 GMT"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(h, http.MethodGet, config.RouteCalendar, tt.headers)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusNotModified {
				assert.Empty(t, w.Body.String())
			}
		})
	}
}

func TestFeed_RepublishWithNewerSource(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()

	srv.Publish(renderFeed(t, sourceModified, []string{"Ann", "14-03"}))
	oldETag := get(h, http.MethodGet, config.RouteCalendar, nil).Header().Get(config.HeaderETag)

	edited := sourceModified.Add(time.Hour)
	srv.Publish(renderFeed(t, edited, []string{"Ann", "14-03"}, []string{"Cid", "20-12"}))

	w := get(h, http.MethodGet, config.RouteCalendar, map[string]string{config.HeaderIfNoneMatch: oldETag})
	require.Equal(t, http.StatusOK, w.Code, "A client holding the old feed must get the new one")
	assert.Contains(t, w.Body.String(), "SUMMARY:Cid")
	assert.Equal(t, edited.Format(http.TimeFormat), w.Header().Get(config.HeaderLastModified))
	assert.NotEqual(t, oldETag, w.Header().Get(config.HeaderETag))
}

func TestFeed_EmptySourceServesStub(t *testing.T) {
	srv := newTestServer()
	srv.Publish(renderFeed(t, sourceModified))

	w := get(srv.Handler(), http.MethodGet, config.RouteCalendar, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, config.StubVCalendar, w.Body.String())
	assert.Equal(t, "0", w.Header().Get(config.HeaderEntries))
}

// -----------------------------------------------------------------------------
// Routing
// -----------------------------------------------------------------------------

func TestRouter(t *testing.T) {
	srv := newTestServer()
	srv.Publish(renderFeed(t, sourceModified, []string{"Ann", "14-03"}))
	h := srv.Handler()

	head := get(h, http.MethodHead, config.RouteCalendar, nil)
	assert.Equal(t, http.StatusOK, head.Code)
	assert.Empty(t, head.Body.String())
	assert.NotEmpty(t, head.Header().Get("Content-Length"))

	post := get(h, http.MethodPost, config.RouteCalendar, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, post.Code)
	assert.Equal(t, config.AllowedMethods, post.Header().Get(config.HeaderAllow))

	assert.Equal(t, http.StatusNotFound, get(h, http.MethodGet, "/contacts.vcf", nil).Code)

	health := get(newTestServer().Handler(), http.MethodGet, config.RouteHealth, nil)
	assert.Equal(t, http.StatusOK, health.Code, "Health must not wait for the first feed")
	assert.Equal(t, config.HealthOK, health.Body.String())
}

func TestNew_JoinsBindAddress(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", New("127.0.0.1", "8080", nil).Addr())
	assert.Equal(t, "[::1]:8080", New("::1", "8080", nil).Addr())
}

// -----------------------------------------------------------------------------
// Concurrency
// -----------------------------------------------------------------------------

// TestFeed_ConcurrentPublish checks that readers always see a complete feed
// while the bot republishes. Run with -race.
func TestFeed_ConcurrentPublish(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	feeds := []engine.Feed{
		renderFeed(t, sourceModified, []string{"Ann", "14-03"}),
		renderFeed(t, sourceModified.Add(time.Minute), []string{"Ann", "14-03"}, []string{"Bob", "15-03"}),
	}
	srv.Publish(feeds[0])

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Go(func() {
			for j := range 200 {
				srv.Publish(feeds[(i+j)%len(feeds)])
			}
		})
	}
	for range 8 {
		wg.Go(func() {
			for range 200 {
				w := get(h, http.MethodGet, config.RouteCalendar, nil)
				if !assert.Equal(t, http.StatusOK, w.Code) {
					return
				}
				entries, err := strconv.Atoi(w.Header().Get(config.HeaderEntries))
				assert.NoError(t, err)
				assert.Equal(t, entries == 2, strings.Contains(w.Body.String(), "SUMMARY:Bob"),
					"entry count and body must come from the same feed")
			}
		})
	}
	wg.Wait()
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

func TestServe_Lifecycle(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := newTestServer()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + config.RouteCalendar
	client := &http.Client{Timeout: 2 * time.Second}
	defer client.CloseIdleConnections()

	resp, err := client.Get(url)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	srv.Publish(renderFeed(t, sourceModified, []string{"Ann", "14-03"}))

	resp, err = client.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "SUMMARY:Ann")

	client.CloseIdleConnections()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "Shutdown must be graceful")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}

func TestStart_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	err = New(host, port, nil).Start(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, config.ErrServerStartup)
}
