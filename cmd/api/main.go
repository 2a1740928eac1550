package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pafrisco/clinic-booking/cmd/mainconfig"
	"github.com/pafrisco/clinic-booking/internal/api/router"
	"github.com/pafrisco/clinic-booking/internal/app/bootstrap"
	"github.com/pafrisco/clinic-booking/internal/appointments"
	"github.com/pafrisco/clinic-booking/internal/booking"
	appconfig "github.com/pafrisco/clinic-booking/internal/config"
	"github.com/pafrisco/clinic-booking/internal/directory"
	"github.com/pafrisco/clinic-booking/internal/http/handlers"
	httpmiddleware "github.com/pafrisco/clinic-booking/internal/http/middleware"
	"github.com/pafrisco/clinic-booking/internal/notify"
	"github.com/pafrisco/clinic-booking/internal/observability/metrics"
	"github.com/pafrisco/clinic-booking/internal/orders"
	"github.com/pafrisco/clinic-booking/pkg/logging"
)

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	if app.limiter != nil {
		go app.limiter.RunEviction(ctx, 5*time.Minute, 10*time.Minute)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RemoteTimeout*2 + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := app.orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Warn("pending confirmations abandoned", "error", err)
	}
	cancel()
	if app.redis != nil {
		_ = app.redis.Close()
	}

	logger.Info("server stopped")
}

type application struct {
	handler      http.Handler
	orchestrator *booking.Orchestrator
	directory    *directory.Directory
	limiter      *httpmiddleware.RateLimiter
	redis        *redis.Client
}

// buildApp wires every component. The provider directory is loaded before it
// returns so the server never listens with an empty directory.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	metricsHandler, bookingMetrics := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	athenaClient, err := bootstrap.BuildAthenaClient(cfg, redisClient, logger)
	if err != nil {
		return nil, err
	}

	dir := directory.New(directory.Options{
		DemoPassword:         cfg.DemoProviderPassword,
		CaseInsensitiveLogin: cfg.LoginCaseInsensitive,
		Logger:               logger,
	})
	initCtx, cancel := context.WithTimeout(ctx, cfg.RemoteTimeout)
	defer cancel()
	if err := dir.Initialize(initCtx, athenaClient); err != nil {
		return nil, err
	}

	sender, err := bootstrap.BuildEmailSender(ctx, cfg, mainconfig.LoadAWSConfig, logger)
	if err != nil {
		return nil, err
	}
	confirmations := notify.NewConfirmationNotifier(sender, notify.ConfirmationConfig{
		ClinicName: cfg.EmailFromName,
		Location:   bootstrap.ClinicLocation(cfg.ClinicTimezone, logger),
	}, logger)

	store := appointments.NewMemoryStore()
	orch, err := booking.New(booking.Config{
		DepartmentID:  cfg.AthenaDepartmentID,
		RemoteTimeout: cfg.RemoteTimeout,
		NotifyTimeout: cfg.NotifyTimeout,
		Logger:        logger,
		Metrics:       bookingMetrics,
	}, booking.Deps{
		Providers: dir,
		Registrar: athenaClient,
		Booker:    athenaClient,
		Store:     store,
		Notifier:  confirmations,
	})
	if err != nil {
		return nil, err
	}

	if cfg.OrdersInboxEmail == "" {
		logger.Warn("ORDERS_INBOX_EMAIL not set; sample orders will be rejected")
	}
	orderService := orders.NewService(notify.NewOrderNotifier(sender, cfg.OrdersInboxEmail, cfg.EmailFromName, logger), logger)

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		Directory:           dir,
		ProviderHandler:     handlers.NewProviderHandler(dir, logger),
		AppointmentsHandler: handlers.NewAppointmentsHandler(orch, store, dir, logger),
		OrdersHandler:       handlers.NewOrdersHandler(orderService, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         limiter,
	})

	return &application{
		handler:      handler,
		orchestrator: orch,
		directory:    dir,
		limiter:      limiter,
		redis:        redisClient,
	}, nil
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}
