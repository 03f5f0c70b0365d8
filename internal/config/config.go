package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort  string
	LogLevel string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	PaymentGateway        string
	PaystackBaseURL       string
	PaystackSecretKey     string
	PaystackCallbackURL   string
	PaystackWebhookSecret string
	PaymentTimeoutSecs    int

	Currency            string
	ScheduleFrequencies []string
	ScheduleDueDates    string
	OverdueSweepSpec    string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads the environment, after merging a .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "sme_escrow"),
		MySQLUser: getenv("MYSQL_USER", "sme_escrow"),
		MySQLPass: getenv("MYSQL_PASS", "sme_escrow"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      getenvInt("REDIS_DB", 0),
		IdempTTLSecs: getenvInt("IDEMPOTENCY_TTL_SECONDS", 300),

		PaymentGateway:        getenv("PAYMENT_GATEWAY", "mock"),
		PaystackBaseURL:       getenv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaystackSecretKey:     os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackCallbackURL:   os.Getenv("PAYSTACK_CALLBACK_URL"),
		PaystackWebhookSecret: os.Getenv("PAYSTACK_WEBHOOK_SECRET"),
		PaymentTimeoutSecs:    getenvInt("PAYMENT_TIMEOUT_SECONDS", 10),

		Currency:            getenv("CURRENCY", "NGN"),
		ScheduleFrequencies: splitList(getenv("SCHEDULE_FREQUENCIES", "monthly,quarterly,bullet")),
		ScheduleDueDates:    getenv("SCHEDULE_DUE_DATES", "approx30"),
		OverdueSweepSpec:    getenv("OVERDUE_SWEEP_SPEC", "@every 1h"),
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.PaymentGateway {
	case "mock":
	case "paystack":
		if c.PaystackSecretKey == "" {
			return errors.New("PAYMENT_GATEWAY=paystack requires PAYSTACK_SECRET_KEY")
		}
	default:
		return fmt.Errorf("invalid PAYMENT_GATEWAY %q (want paystack or mock)", c.PaymentGateway)
	}
	if c.PaymentTimeoutSecs <= 0 {
		return fmt.Errorf("invalid PAYMENT_TIMEOUT_SECONDS %d", c.PaymentTimeoutSecs)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("invalid CURRENCY %q", c.Currency)
	}
	switch c.ScheduleDueDates {
	case "approx30", "calendar":
	default:
		return fmt.Errorf("invalid SCHEDULE_DUE_DATES %q (want approx30 or calendar)", c.ScheduleDueDates)
	}
	return nil
}

func (c *Config) PaymentTimeout() time.Duration {
	return time.Duration(c.PaymentTimeoutSecs) * time.Second
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
