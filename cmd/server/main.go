package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/lueurxax/cryptosavings-server/internal/auth"
	"github.com/lueurxax/cryptosavings-server/internal/calculator"
	"github.com/lueurxax/cryptosavings-server/internal/config"
	"github.com/lueurxax/cryptosavings-server/internal/handler"
	"github.com/lueurxax/cryptosavings-server/internal/middleware"
	"github.com/lueurxax/cryptosavings-server/internal/queue"
	"github.com/lueurxax/cryptosavings-server/internal/rates"
	"github.com/lueurxax/cryptosavings-server/internal/service"
	"github.com/lueurxax/cryptosavings-server/internal/storage/sqlite"
	"github.com/lueurxax/cryptosavings-server/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Server.DBPath)

	// Rate provider: retrying HTTP client behind a TTL cache.
	rateClient := rates.NewClient(rates.Options{
		BaseURL:    cfg.Rates.BaseURL,
		Timeout:    cfg.RatesTimeout(),
		MaxRetries: cfg.Rates.MaxRetries,
	})
	rateProvider := rates.NewCachedProvider(rateClient, cfg.RatesCacheTTL(), cfg.RatesMinInterval(), nil)

	tokenDuration, _ := cfg.TokenDuration()
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, tokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)

	mutators := queue.NewGroup()
	defer mutators.Close()

	calc := calculator.NewCalculator(rateProvider, nil)
	planning := service.NewPlanningService(store, calc, mutators, nil)
	execution := service.NewExecutionService(store, mutators, cfg.UndoWindow(), nil)
	history := service.NewHistoryService(store, nil)
	authSvc := service.NewAuthService(authenticator, jwtManager, nil)

	if spec := cfg.Planner.ReminderCron; spec != "" {
		scheduler := service.NewNotificationScheduler(planning, nil, nil)
		if err := scheduler.Start(spec); err != nil {
			slog.Error("Failed to start notification scheduler", "error", err)
			os.Exit(1)
		}
		defer scheduler.Stop()
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging, middleware.Metrics)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	h := handler.New(authSvc, planning, execution, history, store, jwtManager, nil)
	h.Routes(router)

	// h2c allows HTTP/2 without TLS when running behind a terminating proxy.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
