// Package server exposes the birthday calendar feed over HTTP.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

// snapshot is one published feed with its validators precomputed.
type snapshot struct {
	feed engine.Feed
	etag string
	// modified is feed.Modified at HTTP date resolution.
	modified time.Time
}

// FeedServer serves the most recently published birthday feed.
// Publish and the handlers may run concurrently.
type FeedServer struct {
	addr    string
	current atomic.Pointer[snapshot]
	log     *slog.Logger
}

// New creates a server listening on host:port once started.
func New(host, port string, logger *slog.Logger) *FeedServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedServer{
		addr: net.JoinHostPort(host, port),
		log:  logger.With(config.LogKeyComponent, config.CompServer),
	}
}

// Addr returns the configured listen address.
func (s *FeedServer) Addr() string {
	return s.addr
}

// Publish makes feed the served content.
func (s *FeedServer) Publish(feed engine.Feed) {
	sum := sha256.Sum256(feed.ICS)
	snap := &snapshot{
		feed:     feed,
		etag:     fmt.Sprintf(config.FormatETag, hex.EncodeToString(sum[:])),
		modified: feed.Modified.UTC().Truncate(time.Second),
	}
	s.current.Store(snap)

	s.log.Info(config.MsgFeedPublished,
		config.LogKeyRecords, feed.Entries,
		config.LogKeyModified, snap.modified,
		config.LogKeyETag, snap.etag,
	)
}

// Handler returns the feed routes.
func (s *FeedServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	for _, route := range []string{config.RouteRoot, config.RouteCalendar} {
		r.Get(route, s.serveFeed)
		r.Head(route, s.serveFeed)
	}
	r.Get(config.RouteHealth, s.serveHealth)
	return r
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *FeedServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles connections from ln until ctx is cancelled, then shuts down
// gracefully. ln is closed on return.
func (s *FeedServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	served := make(chan error, config.ChannelBufferSize)
	go func() {
		s.log.Info(config.MsgServerListen, config.LogKeyPort, ln.Addr().String())
		served <- srv.Serve(ln)
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)

	case <-ctx.Done():
		s.log.Info(config.MsgServerStop)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		<-served
		return nil
	}
}

// serveFeed writes the current feed. Conditional and HEAD requests are
// answered by http.ServeContent from the ETag and the source modification time.
func (s *FeedServer) serveFeed(w http.ResponseWriter, r *http.Request) {
	snap := s.current.Load()
	if snap == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set(config.HeaderContentType, config.MimeTextCalendar)
	h.Set(config.HeaderXContentType, config.MimeNoSniff)
	h.Set(config.HeaderCacheControl, config.CacheControlPrivate)
	h.Set(config.HeaderETag, snap.etag)
	h.Set(config.HeaderEntries, strconv.Itoa(snap.feed.Entries))

	http.ServeContent(w, r, config.FeedFileName, snap.modified, bytes.NewReader(snap.feed.ICS))
}

// serveHealth reports liveness, independent of whether a feed was published.
func (s *FeedServer) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(config.HeaderContentType, config.MimeTextPlain)
	if _, err := w.Write([]byte(config.HealthOK)); err != nil {
		s.log.Error(config.ErrWriteResp, config.LogKeyError, err)
	}
}
