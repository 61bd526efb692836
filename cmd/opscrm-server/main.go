package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opscrm/backend/internal/config"
	"opscrm/backend/internal/directory"
	"opscrm/backend/internal/domain"
	"opscrm/backend/internal/observability/metrics"
	"opscrm/backend/internal/service/appointments"
	"opscrm/backend/internal/store/postgres"
	httptransport "opscrm/backend/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "opscrm-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "opscrm-server"),
	)
	slog.SetDefault(log)

	log.Info("starting", slog.String("http_addr", cfg.HTTPAddr), slog.String("log_level", cfg.LogLevel))

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	tz, err := time.LoadLocation(cfg.Scheduling.TimeZone)
	if err != nil {
		log.Error("invalid scheduling time zone", slog.Any("err", err), slog.String("time_zone", cfg.Scheduling.TimeZone))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	schedMetrics := metrics.NewSchedulingMetrics(registry)

	repo := postgres.NewAppointmentRepo(db)
	svc := appointments.NewService(repo, appointments.Directories{
		Locations: directory.NewLocationDirectory(db),
		Leads:     directory.NewLeadDirectory(db),
		Customers: directory.NewCustomerDirectory(db),
	}, appointments.BusinessHours{
		Open:        cfg.Scheduling.OpenTime,
		Close:       cfg.Scheduling.CloseTime,
		StepMinutes: cfg.Scheduling.SlotStepMinutes,
		Location:    tz,
		Durations:   durationsByType(cfg.Scheduling.DefaultDurations),
	}, appointments.Options{
		Logger:  log,
		Metrics: schedMetrics,
	})

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Appointments:   httptransport.NewAppointmentsHandler(svc, log),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      http.TimeoutHandler(router, cfg.RequestTimeout, "request timed out"),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, srv, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func durationsByType(byName map[string]int) map[domain.AppointmentType]int {
	out := make(map[domain.AppointmentType]int, len(byName))
	for name, minutes := range byName {
		out[domain.AppointmentType(name)] = minutes
	}
	return out
}

func shutdown(log *slog.Logger, srv *http.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; forcing close", slog.Any("err", err))
		_ = srv.Close()
		return
	}
	log.Info("http server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
