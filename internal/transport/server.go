// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"noisestream/internal/config"
	"noisestream/internal/metrics"
	"noisestream/internal/profile"
	"noisestream/internal/stream"
	"noisestream/internal/synth"
)

// Sink labels used in logs and metrics.
const (
	SinkHTTP      = "http"
	SinkWebSocket = "websocket"
)

// Server streams generator profiles over HTTP and WebSocket.
type Server struct {
	cfg      *config.Config
	router   *chi.Mux
	logger   *zap.Logger
	upgrader *websocket.Upgrader
	slots    *semaphore.Weighted // nil when unlimited

	// ctx is cancelled by Close to end every running stream.
	ctx     context.Context
	cancel  context.CancelFunc
	streams sync.WaitGroup
}

// NewServer builds the router for cfg. The server does not listen until
// ListenAndServe is called.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		upgrader: NewUpgrader(cfg.Server.AllowedOrigins),
		ctx:      ctx,
		cancel:   cancel,
	}
	if cfg.Server.MaxStreams > 0 {
		s.slots = semaphore.NewWeighted(int64(cfg.Server.MaxStreams))
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	origins := s.cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"X-Stream-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/profiles", s.handleProfiles)
		r.Get("/noise_generator/{profile}", s.handleNoise)
	})
	r.Get("/ws/{profile}", s.handleWebSocket)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on the configured address until ctx is done, then
// ends the open streams and shuts down within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: streams are unbounded.
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		// Streams never go idle on their own.
		s.cancel()
		err := srv.Shutdown(shutdownCtx)
		s.wait(shutdownCtx)
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Close ends every running stream and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.streams.Wait()
}

func (s *Server) wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("streams still running after shutdown timeout")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

// ProfileInfo describes one streamable profile.
type ProfileInfo struct {
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	Subtype    string             `json:"subtype"`
	Label      string             `json:"label"`
	Category   string             `json:"category"`
	Parameters profile.Parameters `json:"parameters"`
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	all := s.cfg.AllProfiles()
	out := make([]ProfileInfo, 0, len(all))
	for _, raw := range all {
		p := profile.NormalizeAt(raw, s.cfg.Stream.SampleRate)
		out = append(out, ProfileInfo{
			Name:       raw.Name,
			Type:       string(p.Type),
			Subtype:    p.Subtype,
			Label:      profile.Label(p.Subtype),
			Category:   profile.CategoryLabel(p.Subtype),
			Parameters: p.Parameters(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleNoise(w http.ResponseWriter, r *http.Request) {
	gen, ok := s.generator(w, r)
	if !ok {
		return
	}
	release, ok := s.acquire(w)
	if !ok {
		return
	}
	defer release()

	id := uuid.NewString()
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Stream-Id", id)
	w.WriteHeader(http.StatusOK)

	s.run(r.Context(), id, SinkHTTP, gen, w)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gen, ok := s.generator(w, r)
	if !ok {
		return
	}
	release, ok := s.acquire(w)
	if !ok {
		return
	}
	defer release()

	id := uuid.NewString()
	t, err := UpgradeWebSocket(s.upgrader, w, r, http.Header{"X-Stream-Id": {id}})
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer t.Close()

	// A hijacked connection does not cancel the request context.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-t.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	s.run(ctx, id, SinkWebSocket, gen, Writer(t), stream.WithPacing(true))
}

// generator resolves the {profile} URL parameter and the query overrides.
// It replies to the client when the request cannot be served.
func (s *Server) generator(w http.ResponseWriter, r *http.Request) (*synth.Generator, bool) {
	name := chi.URLParam(r, "profile")
	raw, ok := s.cfg.Profile(name)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown profile %q", name), http.StatusNotFound)
		return nil, false
	}

	params := make(profile.Parameters, len(raw.Parameters)+2)
	maps.Copy(params, raw.Parameters)

	q := r.URL.Query()
	if v := q.Get("seed"); v != "" {
		params[profile.KeySeed] = profile.ParseSeed(v).Value()
	}
	if v := q.Get("volume"); v != "" {
		vol, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid volume %q", v), http.StatusBadRequest)
			return nil, false
		}
		params[profile.KeyVolume] = vol
	}
	raw.Parameters = params

	sr := s.cfg.Stream.SampleRate
	gen, err := synth.FromProfile(profile.NormalizeAt(raw, sr), synth.WithSampleRate(sr))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return nil, false
	}
	return gen, true
}

// acquire reserves a stream slot, replying 503 when none is free.
func (s *Server) acquire(w http.ResponseWriter) (release func(), ok bool) {
	if s.ctx.Err() != nil {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return nil, false
	}
	if s.slots != nil && !s.slots.TryAcquire(1) {
		metrics.StreamsRejectedTotal.Inc()
		http.Error(w, "too many concurrent streams", http.StatusServiceUnavailable)
		return nil, false
	}

	s.streams.Add(1)
	return func() {
		if s.slots != nil {
			s.slots.Release(1)
		}
		s.streams.Done()
	}, true
}

// run drives gen into w until the client leaves or the server closes.
func (s *Server) run(ctx context.Context, id, sink string, gen *synth.Generator, w io.Writer, opts ...stream.Option) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	p := gen.Profile()
	log := s.logger.With(
		zap.String("stream_id", id),
		zap.String("sink", sink),
		zap.String("profile", p.Name),
	)

	metrics.StreamsStartedTotal.WithLabelValues(sink, p.Subtype).Inc()
	active := metrics.ActiveStreams.WithLabelValues(sink)
	active.Inc()
	defer active.Dec()

	log.Info("stream started",
		zap.String("subtype", p.Subtype),
		zap.Float64("volume", p.Volume),
		zap.Stringer("seed", p.Seed),
	)

	opts = append(opts, stream.WithObserver(metrics.ForSink(sink)))
	d := stream.NewDriver(gen, gen.SampleRate(), s.cfg.Stream.ChunkDuration, opts...)
	res, _ := d.Run(ctx, w)

	metrics.StreamsStoppedTotal.WithLabelValues(res.Reason.String()).Inc()
	fields := []zap.Field{
		zap.Stringer("reason", res.Reason),
		zap.Int("chunks", res.Chunks),
		zap.Int64("bytes", res.Bytes),
	}
	if res.SinkErr != nil && !stream.IsDisconnect(res.SinkErr) && !errors.Is(res.SinkErr, ErrClientGone) {
		log.Warn("stream ended by write error", append(fields, zap.Error(res.SinkErr))...)
		return
	}
	log.Info("stream stopped", fields...)
}
