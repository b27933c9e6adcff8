package www

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/eloverblik-exporter/config"
	"github.com/angas/eloverblik-exporter/database"
	"github.com/angas/eloverblik-exporter/exporter"
	"github.com/angas/eloverblik-exporter/restclient"
	"github.com/angas/eloverblik-exporter/usage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Database interface {
	Version(ctx context.Context) (int, error)
	GetUsageSeries(ctx context.Context, meteringPointID string, g usage.Granularity, from, to time.Time) (usage.Series, error)
	GetMeteringPointIDs(ctx context.Context) ([]string, error)
	GetExportRuns(ctx context.Context, limit int) ([]database.ExportRunRow, error)
	GetLogEntries(ctx context.Context, minLvl slog.Level, page, pageSize int) ([]database.LogEntryRow, error)
}

type Exporter interface {
	Run(ctx context.Context, from, to time.Time) (exporter.RunSummary, error)
}

type TokenStater interface {
	TokenState() (restclient.TokenState, error)
}

type Options struct {
	Version  string
	DaysBack int
	Location *time.Location
	// Tokens is optional, the status endpoint reports "unknown" without it.
	Tokens TokenStater
}

type Server struct {
	logger *slog.Logger
	config config.AppConfigApi
	db     Database
	ex     Exporter
	hub    *Hub
	opts   Options
}

func NewServer(logger *slog.Logger, config config.AppConfigApi, db Database, ex Exporter, hub *Hub, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Server{
		logger: logger.With("module", "www"),
		config: config,
		db:     db,
		ex:     ex,
		hub:    hub,
		opts:   opts,
	}
}

func (s *Server) Handler() http.Handler {
	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	mux := http.NewServeMux()
	mux.Handle("GET /api/status", NewSysInfoHandler(s.logger.With(slog.String("handler", "status")), s.db, s.opts))
	mux.Handle("GET /api/metering_points", NewMeteringPointsHandler(s.logger.With(slog.String("handler", "metering_points")), s.db))
	mux.Handle("GET /api/usage/{id}", NewUsageHandler(s.logger.With(slog.String("handler", "usage")), s.db, s.opts))
	mux.Handle("GET /api/usage/{id}/chart", NewChartHandler(s.logger.With(slog.String("handler", "chart")), s.db, s.opts))
	mux.Handle("POST /api/export", NewExportHandler(s.logger.With(slog.String("handler", "export")), s.ex, s.opts))
	mux.Handle("GET /api/runs", NewRunsHandler(s.logger.With(slog.String("handler", "runs")), s.db, s.opts))
	mux.Handle("GET /api/log", NewLogHandler(s.logger.With(slog.String("handler", "log")), s.db, s.opts))

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		if !s.hub.Add(client) {
			client.conn.Close()
			return
		}
		go client.WritePump()
	})

	return logReqMW(mux)
}

// Run serves the API until ctx is done. The websocket hub runs alongside.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	s.logger.Info("starting server...", slog.String("addr", addr))
	return serve(ctx, s.logger, &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	})
}

// RunMetrics serves the Prometheus registry on its own address.
func RunMetrics(ctx context.Context, logger *slog.Logger, cnfg config.AppConfigMetrics) error {
	logger = logger.With("module", "metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", cnfg.Address, cnfg.Port)
	logger.Info("starting metrics server...", slog.String("addr", addr))
	return serve(ctx, logger, &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	})
}

func serve(ctx context.Context, logger *slog.Logger, srv *http.Server) error {
	srvErrors := make(chan error, 1)
	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server on %s failed: %w", srv.Addr, err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}
