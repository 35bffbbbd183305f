package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/yuzvak/checkout-service/internal/application/ports"
	"github.com/yuzvak/checkout-service/internal/application/use_cases"
	"github.com/yuzvak/checkout-service/internal/config"
	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	"github.com/yuzvak/checkout-service/internal/domain/money"
	"github.com/yuzvak/checkout-service/internal/infrastructure/auth"
	"github.com/yuzvak/checkout-service/internal/infrastructure/gateway"
	"github.com/yuzvak/checkout-service/internal/infrastructure/http/handlers"
	"github.com/yuzvak/checkout-service/internal/infrastructure/http/server"
	"github.com/yuzvak/checkout-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/checkout-service/internal/infrastructure/persistence/postgres"
	"github.com/yuzvak/checkout-service/internal/infrastructure/persistence/redis"
	"github.com/yuzvak/checkout-service/internal/infrastructure/scheduler"
	"github.com/yuzvak/checkout-service/internal/pkg/clock"
	"github.com/yuzvak/checkout-service/internal/pkg/generator"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	flag.Parse()

	log := logger.NewLogger()
	log.Info("Starting Checkout Service")

	cfg, configErr := config.LoadConfig(*configPath)
	if configErr != nil {
		log.Fatal("Failed to load configuration", "error", configErr)
	}
	log = logger.New(os.Stdout, logger.ParseLevel(cfg.Log.Level))

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	db, dbErr := postgres.NewConnection(startupCtx, cfg.Database)
	if dbErr != nil {
		log.Fatal("Failed to connect to database", "error", dbErr, "driver", cfg.Database.Driver)
	}
	defer db.Close()

	if migrationErr := db.RunMigrations(cfg.Database.MigrationsPath, log); migrationErr != nil {
		log.Fatal("Failed to run migrations", "error", migrationErr)
	}

	redisConn, err := redis.NewConnection(startupCtx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisConn.Close()

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	dbMetricsCollector := monitoring.NewDBMetricsCollector(db.GetDB())
	dbMetricsCollector.StartCollecting(serverCtx, 30*time.Second)

	clk := clock.NewRealClock()
	httpClient := &http.Client{Timeout: cfg.Gateway.TimeoutDuration()}
	refreshURL := strings.TrimRight(cfg.Gateway.BaseURL, "/") + cfg.Gateway.RefreshPath

	sessions := use_cases.NewCheckoutSessionUseCase(use_cases.CheckoutSessionDeps{
		Sessions: use_cases.NewSessionRegistry(monitoring.NewSessionMetrics()),
		Carts:    redis.NewCartStore(redisConn, cfg.Redis.CartTTLDuration(), log),
		Attempts: postgres.NewAttemptRepository(db),
		Lock:     redis.NewSubmissionLock(redisConn),
		Gateways: func(accessToken, refreshToken string) ports.GatewayClient {
			session := auth.NewSession(httpClient, refreshURL, accessToken, refreshToken, log)
			return gateway.NewClient(cfg.Gateway.BaseURL, session, log)
		},
		Observer:   monitoring.NewCheckoutObserver(),
		Calculator: checkout.NewSummaryCalculator(feeSchedule(cfg.Checkout)),
		IDs:        generator.NewCodeGenerator(clk),
		Clock:      clk,
		Log:        log,
	}, cfg.Checkout.Currency, cfg.Checkout.ProductCategory, cfg.Checkout.SubmissionTimeoutDuration())

	janitor := scheduler.NewSessionJanitor(sessions, log, cfg.Checkout.SessionTTLDuration(), cfg.Checkout.JanitorIntervalDuration())

	formatter := money.NewFormatter(cfg.Checkout.Locale)
	httpServer := server.NewServer(
		cfg.Server,
		handlers.NewHealthHandler(db, redisConn, sessions, log),
		handlers.NewCheckoutHandler(sessions, formatter, log),
		handlers.NewPricingHandler(formatter),
		log,
	)

	go janitor.Start(serverCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigChan
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
		defer cancel()

		log.Info("Shutting down server...")
		janitor.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}

		serverStopCtx()
	}()

	log.Info("Server starting", "address", cfg.Server.Addr(), "fee_schedule", cfg.Checkout.FeeSchedule)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server failed", "error", err)
	}

	<-serverCtx.Done()
	log.Info("Server stopped")
}

func feeSchedule(cfg config.CheckoutConfig) checkout.FeeSchedule {
	if cfg.FeeSchedule == config.FeeSchedulePercentage {
		return checkout.PercentageFees{BaseBps: cfg.BaseFeeBps, DeliveryBps: cfg.DeliveryFeeBps}
	}
	return checkout.FlatFees{Base: cfg.BaseFee, Delivery: cfg.DeliveryFee}
}
