package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Gateway  GatewayConfig  `json:"gateway"`
	Checkout CheckoutConfig `json:"checkout"`
	Log      LogConfig      `json:"log"`
}

type ServerConfig struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	RequestTimeout  int      `json:"request_timeout"`
	ShutdownTimeout int      `json:"shutdown_timeout"`
	AllowedOrigins  []string `json:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver         string `json:"driver"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"dbname"`
	SSLMode        string `json:"sslmode"`
	MaxOpenConns   int    `json:"max_open_conns"`
	MigrationsPath string `json:"migrations_path"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
	CartTTL  int    `json:"cart_ttl"`
}

type GatewayConfig struct {
	BaseURL     string `json:"base_url"`
	Timeout     int    `json:"timeout"`
	RefreshPath string `json:"refresh_path"`
}

type CheckoutConfig struct {
	Currency          string `json:"currency"`
	FeeSchedule       string `json:"fee_schedule"`
	BaseFee           int64  `json:"base_fee"`
	DeliveryFee       int64  `json:"delivery_fee"`
	BaseFeeBps        int64  `json:"base_fee_bps"`
	DeliveryFeeBps    int64  `json:"delivery_fee_bps"`
	SessionTTL        int    `json:"session_ttl"`
	JanitorInterval   int    `json:"janitor_interval"`
	SubmissionTimeout int    `json:"submission_timeout"`
	Locale            string `json:"locale"`
	ProductCategory   string `json:"product_category"`
}

type LogConfig struct {
	Level string `json:"level"`
}

const (
	FeeScheduleFlat       = "flat"
	FeeSchedulePercentage = "percentage"
)

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RequestTimeout:  60,
			ShutdownTimeout: 30,
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			DBName:         "checkout",
			SSLMode:        "disable",
			MaxOpenConns:   25,
			MigrationsPath: "internal/infrastructure/persistence/postgres/migrations",
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 20,
			CartTTL:  7 * 24 * 60,
		},
		Gateway: GatewayConfig{
			BaseURL:     "http://localhost:3001",
			Timeout:     15,
			RefreshPath: "/api/auth/refresh",
		},
		Checkout: CheckoutConfig{
			Currency:          "COP",
			FeeSchedule:       FeeScheduleFlat,
			BaseFee:           1000,
			DeliveryFee:       500,
			SessionTTL:        30,
			JanitorInterval:   60,
			SubmissionTimeout: 45,
			Locale:            "es-CO",
			ProductCategory:   "Música Digital",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the JSON file over the defaults, then applies .env and
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("DB_PASSWORD"); ok {
		c.Database.Password = v
	}
	if v, ok := os.LookupEnv("DB_DRIVER"); ok && v != "" {
		c.Database.Driver = v
	}
	if v, ok := os.LookupEnv("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if v, ok := os.LookupEnv("GATEWAY_BASE_URL"); ok && v != "" {
		c.Gateway.BaseURL = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv("PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) Validate() error {
	var problems []string

	ck := c.Checkout
	if strings.TrimSpace(ck.Currency) == "" {
		problems = append(problems, "checkout.currency must not be empty")
	}
	if ck.BaseFee < 0 || ck.DeliveryFee < 0 || ck.BaseFeeBps < 0 || ck.DeliveryFeeBps < 0 {
		problems = append(problems, "checkout fees must not be negative")
	}
	switch ck.FeeSchedule {
	case FeeScheduleFlat, FeeSchedulePercentage:
	default:
		problems = append(problems, fmt.Sprintf("checkout.fee_schedule %q is not one of flat, percentage", ck.FeeSchedule))
	}
	if ck.SessionTTL <= 0 {
		problems = append(problems, "checkout.session_ttl must be positive")
	}
	if c.Gateway.BaseURL == "" {
		problems = append(problems, "gateway.base_url must not be empty")
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q is not one of postgres, pgx", c.Database.Driver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func (c *ServerConfig) RequestTimeoutDuration() time.Duration {
	return seconds(c.RequestTimeout)
}

func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return seconds(c.ShutdownTimeout)
}

func (c *GatewayConfig) TimeoutDuration() time.Duration {
	return seconds(c.Timeout)
}

func (c *RedisConfig) CartTTLDuration() time.Duration {
	return minutes(c.CartTTL)
}

func (c *CheckoutConfig) SessionTTLDuration() time.Duration {
	return minutes(c.SessionTTL)
}

func (c *CheckoutConfig) JanitorIntervalDuration() time.Duration {
	return seconds(c.JanitorInterval)
}

func (c *CheckoutConfig) SubmissionTimeoutDuration() time.Duration {
	return seconds(c.SubmissionTimeout)
}
