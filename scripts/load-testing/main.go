package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yuzvak/checkout-service/internal/config"
	"github.com/yuzvak/checkout-service/internal/infrastructure/persistence/redis"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to the service configuration, used to reach Redis")
	baseURL := flag.String("url", "http://localhost:8080", "Checkout service base URL")
	paymentType := flag.String("payment-type", "direct", "direct or intent")
	submit := flag.Bool("submit", true, "Submit each checkout to the gateway")
	flag.Parse()

	log := logger.NewLogger()

	loadConfig := &LoadTestConfig{
		BaseURL:             *baseURL,
		ConcurrentUsers:     100,
		TestDurationSeconds: 60,
		RampUpSeconds:       10,
		CatalogSize:         5000,
		PaymentType:         *paymentType,
		Submit:              *submit,
	}

	switch flag.Arg(0) {
	case "light":
		loadConfig.ConcurrentUsers = 50
		loadConfig.TestDurationSeconds = 30
	case "heavy":
		loadConfig.ConcurrentUsers = 500
		loadConfig.TestDurationSeconds = 300
	case "stress":
		loadConfig.ConcurrentUsers = 1000
		loadConfig.TestDurationSeconds = 600
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisConn, err := redis.NewConnection(ctx, cfg.Redis)
	cancel()
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisConn.Close()

	carts := redis.NewCartStore(redisConn, cfg.Redis.CartTTLDuration(), log)
	loadTester := NewLoadTester(loadConfig, carts)

	fmt.Printf("Configuration:\n")
	fmt.Printf("- Base URL: %s\n", loadConfig.BaseURL)
	fmt.Printf("- Concurrent Users: %d\n", loadConfig.ConcurrentUsers)
	fmt.Printf("- Test Duration: %d seconds\n", loadConfig.TestDurationSeconds)
	fmt.Printf("- Ramp Up: %d seconds\n", loadConfig.RampUpSeconds)
	fmt.Printf("- Payment Type: %s (submit: %t)\n", loadConfig.PaymentType, loadConfig.Submit)
	fmt.Printf("\nStarting test...\n\n")

	metrics := loadTester.Run()

	metrics.PrintReport()

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("load_test_results_%s.json", timestamp)
	if err := metrics.SaveToFile(filename); err != nil {
		log.Error("Failed to save results to file", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Results saved to: %s\n", filename)
}
