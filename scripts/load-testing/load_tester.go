package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	"github.com/yuzvak/checkout-service/internal/pkg/generator"
)

type LoadTestConfig struct {
	BaseURL             string
	ConcurrentUsers     int
	TestDurationSeconds int
	RampUpSeconds       int
	CatalogSize         int
	PaymentType         string
	Submit              bool
}

type TestResult struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	SessionsOpened     int64
	ApprovedCheckouts  int64
	DeclinedCheckouts  int64
	PendingCheckouts   int64
	ResponseTimes      []time.Duration
	Errors             map[string]int64
	mutex              sync.RWMutex
}

type PerformanceMetrics struct {
	StartTime           time.Time        `json:"start_time"`
	EndTime             time.Time        `json:"end_time"`
	TotalDuration       time.Duration    `json:"total_duration"`
	ThroughputRPS       float64          `json:"throughput_rps"`
	SuccessfulTPS       float64          `json:"successful_tps"`
	P50ResponseTime     time.Duration    `json:"p50_response_time"`
	P95ResponseTime     time.Duration    `json:"p95_response_time"`
	P99ResponseTime     time.Duration    `json:"p99_response_time"`
	ErrorRate           float64          `json:"error_rate"`
	SessionsOpened      int64            `json:"sessions_opened"`
	CheckoutSuccessRate float64          `json:"checkout_success_rate"`
	TopErrors           map[string]int64 `json:"top_errors,omitempty"`
}

// CartSeeder fills a user's cart before the user opens a session.
type CartSeeder interface {
	AddLine(ctx context.Context, userID string, line checkout.CartLine) error
	Clear(ctx context.Context, userID string) error
}

type LoadTester struct {
	config *LoadTestConfig
	result *TestResult
	client *http.Client
	carts  CartSeeder
	albums *generator.AlbumGenerator
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type sessionData struct {
	ID                string `json:"id"`
	Step              int    `json:"step"`
	Error             string `json:"error"`
	TransactionStatus string `json:"transaction_status"`
	RedirectURL       string `json:"redirect_url"`
}

func NewLoadTester(config *LoadTestConfig, carts CartSeeder) *LoadTester {
	return &LoadTester{
		config: config,
		result: &TestResult{
			ResponseTimes: make([]time.Duration, 0),
			Errors:        make(map[string]int64),
		},
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 100,
				MaxConnsPerHost:     200,
			},
		},
		carts:  carts,
		albums: generator.NewAlbumGenerator(0),
	}
}

func (lt *LoadTester) recordResponse(duration time.Duration, success bool, operation string, err error) {
	lt.result.mutex.Lock()
	defer lt.result.mutex.Unlock()

	atomic.AddInt64(&lt.result.TotalRequests, 1)
	lt.result.ResponseTimes = append(lt.result.ResponseTimes, duration)

	if success {
		atomic.AddInt64(&lt.result.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&lt.result.FailedRequests, 1)
		if err != nil {
			lt.result.Errors[fmt.Sprintf("%s: %s", operation, err.Error())]++
		}
	}
}

func (lt *LoadTester) simulateUser(ctx context.Context, userNum int, wg *sync.WaitGroup) {
	defer wg.Done()

	userID := fmt.Sprintf("loadtest_user_%d", userNum)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := lt.seedCart(ctx, userID); err != nil {
				lt.recordResponse(0, false, "seed", err)
				time.Sleep(time.Second)
				continue
			}
			lt.runCheckout(ctx, userID)

			time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)
		}
	}
}

func (lt *LoadTester) seedCart(ctx context.Context, userID string) error {
	if err := lt.carts.Clear(ctx, userID); err != nil {
		return err
	}
	for _, album := range lt.albums.GenerateCart(lt.config.CatalogSize, 4) {
		line := checkout.CartLine{ProductID: album.ID, Name: album.Name, UnitPrice: album.Price, Quantity: 1}
		if err := lt.carts.AddLine(ctx, userID, line); err != nil {
			return err
		}
	}
	return nil
}

func (lt *LoadTester) runCheckout(ctx context.Context, userID string) {
	headers := map[string]string{
		"X-User-ID":       userID,
		"Authorization":   "Bearer loadtest-" + userID,
		"X-Refresh-Token": "loadtest-refresh-" + userID,
	}

	session, ok := lt.call(ctx, "open", http.MethodPost, "/checkout/sessions", map[string]string{
		"email":      userID + "@loadtest.local",
		"first_name": "Load",
		"last_name":  "Test",
	}, headers)
	if !ok {
		return
	}
	atomic.AddInt64(&lt.result.SessionsOpened, 1)
	base := "/checkout/sessions/" + session.ID
	owner := map[string]string{"X-User-ID": userID}
	defer lt.call(context.WithoutCancel(ctx), "close", http.MethodDelete, base, nil, owner)

	if _, ok := lt.call(ctx, "form", http.MethodPatch, base+"/form", map[string]string{"field": "customerPhone", "value": "3001234567"}, owner); !ok {
		return
	}
	if _, ok := lt.call(ctx, "payment_type", http.MethodPut, base+"/payment-type", map[string]string{"payment_type": lt.config.PaymentType}, owner); !ok {
		return
	}

	if lt.config.PaymentType == string(checkout.PaymentTypeDirect) {
		card := [][2]string{
			{"number", "4242424242424242"},
			{"cvc", "123"},
			{"expiry", "12/2035"},
			{"cardHolderName", "LOAD TEST"},
		}
		for _, kv := range card {
			if _, ok := lt.call(ctx, "card", http.MethodPatch, base+"/card", map[string]string{"field": kv[0], "value": kv[1]}, owner); !ok {
				return
			}
		}
	}

	for _, step := range []int{2, 3} {
		if _, ok := lt.call(ctx, "step", http.MethodPost, base+"/step", map[string]int{"step": step}, owner); !ok {
			return
		}
	}

	if !lt.config.Submit {
		return
	}

	result, ok := lt.call(ctx, "submit", http.MethodPost, base+"/submit", nil, owner)
	if !ok {
		return
	}
	switch {
	case result.TransactionStatus == string(checkout.StatusApproved):
		atomic.AddInt64(&lt.result.ApprovedCheckouts, 1)
	case result.RedirectURL != "":
		atomic.AddInt64(&lt.result.PendingCheckouts, 1)
	default:
		atomic.AddInt64(&lt.result.DeclinedCheckouts, 1)
	}
}

// call returns the session payload for endpoints that answer with a session.
func (lt *LoadTester) call(ctx context.Context, operation, method, path string, body interface{}, headers map[string]string) (*sessionData, bool) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			lt.recordResponse(0, false, operation, err)
			return nil, false
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, lt.config.BaseURL+path, reader)
	if err != nil {
		lt.recordResponse(0, false, operation, err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := lt.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			lt.recordResponse(duration, false, operation, err)
		}
		return nil, false
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		lt.recordResponse(duration, false, operation, fmt.Errorf("status %d: %s", resp.StatusCode, env.Message))
		return nil, false
	}
	lt.recordResponse(duration, true, operation, nil)

	session := &sessionData{}
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, session)
	}
	return session, true
}

func (lt *LoadTester) Run() *PerformanceMetrics {
	fmt.Printf("Starting load test with %d concurrent users for %d seconds\n",
		lt.config.ConcurrentUsers, lt.config.TestDurationSeconds)

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(lt.config.TestDurationSeconds)*time.Second)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nReceived interrupt signal, stopping test...")
			cancel()
		case <-ctx.Done():
		}
	}()

	startTime := time.Now()
	var wg sync.WaitGroup

	userInterval := time.Duration(lt.config.RampUpSeconds) * time.Second / time.Duration(lt.config.ConcurrentUsers)

	for i := 0; i < lt.config.ConcurrentUsers; i++ {
		wg.Add(1)
		go lt.simulateUser(ctx, i, &wg)

		if i < lt.config.ConcurrentUsers-1 {
			time.Sleep(userInterval)
		}
	}

	go lt.monitorProgress(ctx, startTime)

	wg.Wait()
	endTime := time.Now()

	return lt.calculateMetrics(startTime, endTime)
}

func (lt *LoadTester) monitorProgress(ctx context.Context, startTime time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(startTime)
			totalReqs := atomic.LoadInt64(&lt.result.TotalRequests)
			successReqs := atomic.LoadInt64(&lt.result.SuccessfulRequests)
			sessions := atomic.LoadInt64(&lt.result.SessionsOpened)

			currentRPS := float64(totalReqs) / elapsed.Seconds()

			fmt.Printf("[%s] Total: %d, Success: %d, Sessions: %d, RPS: %.1f\n",
				elapsed.Round(time.Second), totalReqs, successReqs, sessions, currentRPS)
		}
	}
}

func (lt *LoadTester) calculateMetrics(startTime, endTime time.Time) *PerformanceMetrics {
	lt.result.mutex.RLock()
	defer lt.result.mutex.RUnlock()

	totalDuration := endTime.Sub(startTime)
	totalRequests := atomic.LoadInt64(&lt.result.TotalRequests)
	successfulRequests := atomic.LoadInt64(&lt.result.SuccessfulRequests)

	metrics := &PerformanceMetrics{
		StartTime:      startTime,
		EndTime:        endTime,
		TotalDuration:  totalDuration,
		SessionsOpened: atomic.LoadInt64(&lt.result.SessionsOpened),
		TopErrors:      topErrors(lt.result.Errors, 10),
	}

	if totalDuration.Seconds() > 0 {
		metrics.ThroughputRPS = float64(totalRequests) / totalDuration.Seconds()
		metrics.SuccessfulTPS = float64(successfulRequests) / totalDuration.Seconds()
	}

	if totalRequests > 0 {
		metrics.ErrorRate = float64(atomic.LoadInt64(&lt.result.FailedRequests)) / float64(totalRequests) * 100
	}

	approved := atomic.LoadInt64(&lt.result.ApprovedCheckouts)
	settled := approved + atomic.LoadInt64(&lt.result.DeclinedCheckouts) + atomic.LoadInt64(&lt.result.PendingCheckouts)
	if settled > 0 {
		metrics.CheckoutSuccessRate = float64(approved) / float64(settled) * 100
	}

	if len(lt.result.ResponseTimes) > 0 {
		metrics.P50ResponseTime = calculatePercentile(lt.result.ResponseTimes, 50)
		metrics.P95ResponseTime = calculatePercentile(lt.result.ResponseTimes, 95)
		metrics.P99ResponseTime = calculatePercentile(lt.result.ResponseTimes, 99)
	}

	return metrics
}

func topErrors(errs map[string]int64, n int) map[string]int64 {
	if len(errs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if errs[keys[i]] != errs[keys[j]] {
			return errs[keys[i]] > errs[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		out[k] = errs[k]
	}
	return out
}

func calculatePercentile(durations []time.Duration, percentile int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	index := int(float64(len(sorted)) * float64(percentile) / 100.0)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	if index < 0 {
		index = 0
	}

	return sorted[index]
}

func (pm *PerformanceMetrics) PrintReport() {
	fmt.Printf("PERFORMANCE TEST RESULTS\n")
	fmt.Printf("Test Duration: %v\n", pm.TotalDuration.Round(time.Second))
	fmt.Printf("Start Time: %s\n", pm.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("End Time: %s\n", pm.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("\n")

	fmt.Printf("THROUGHPUT METRICS:\n")
	fmt.Printf("- Total RPS: %.2f requests/second\n", pm.ThroughputRPS)
	fmt.Printf("- Successful TPS: %.2f transactions/second\n", pm.SuccessfulTPS)
	fmt.Printf("- Error Rate: %.2f%%\n", pm.ErrorRate)
	fmt.Printf("\n")

	fmt.Printf("RESPONSE TIME METRICS:\n")
	fmt.Printf("- P50 Response Time: %v\n", pm.P50ResponseTime.Round(time.Millisecond))
	fmt.Printf("- P95 Response Time: %v\n", pm.P95ResponseTime.Round(time.Millisecond))
	fmt.Printf("- P99 Response Time: %v\n", pm.P99ResponseTime.Round(time.Millisecond))
	fmt.Printf("\n")

	fmt.Printf("CHECKOUT METRICS:\n")
	fmt.Printf("- Sessions Opened: %d\n", pm.SessionsOpened)
	fmt.Printf("- Checkout Success Rate: %.2f%%\n", pm.CheckoutSuccessRate)
	fmt.Printf("\n")

	if len(pm.TopErrors) > 0 {
		fmt.Printf("TOP ERRORS:\n")
		for msg, count := range pm.TopErrors {
			fmt.Printf("- %s (%d)\n", msg, count)
		}
		fmt.Printf("\n")
	}
}

func (pm *PerformanceMetrics) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(pm, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
