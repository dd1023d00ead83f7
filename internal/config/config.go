package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"   // Struct tag based environment parsing
	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // Money and rates
)

// Config holds the application configuration
type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"8080"`  // Application port
	IsProd   bool   `env:"IS_PROD" envDefault:"false"`  // Is production environment
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"` // Logrus level name

	DB struct {
		Driver   string `env:"DB_DRIVER" envDefault:"mysql"` // mysql or postgres
		User     string `env:"DB_USER"`                      // Database user
		Password string `env:"DB_PASSWORD"`                  // Database password
		Host     string `env:"DB_HOST" envDefault:"localhost"`
		Port     string `env:"DB_PORT"` // Defaults per driver, see DSN
		Name     string `env:"DB_NAME"` // Database name
		SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	}

	JWT struct {
		Secret string        `env:"JWT_SECRET,required,notEmpty"` // JWT secret key
		TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`     // Token lifetime
	}

	Redis struct {
		Addr string `env:"REDIS_ADDR" envDefault:"localhost:6379"` // Redis server address
		Pass string `env:"REDIS_PASS"`                             // Redis password
		DB   int    `env:"REDIS_DB" envDefault:"0"`                // Redis database number
	}

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	Withdraw struct {
		MinBalance    decimal.Decimal `env:"WITHDRAW_MIN_BALANCE" envDefault:"200"`
		MinAccountAge time.Duration   `env:"WITHDRAW_MIN_ACCOUNT_AGE" envDefault:"168h"`
		TaxRate       decimal.Decimal `env:"WITHDRAW_TAX_RATE" envDefault:"0.05"`
		ServiceRate   decimal.Decimal `env:"WITHDRAW_SERVICE_RATE" envDefault:"0.30"`
		IntentTTL     time.Duration   `env:"WITHDRAW_INTENT_TTL" envDefault:"72h"` // 0 disables expiry
		SweepInterval time.Duration   `env:"WITHDRAW_SWEEP_INTERVAL" envDefault:"5m"`
	}

	SMTP struct {
		Host string `env:"SMTP_HOST"` // Empty host logs mail instead of sending it
		Port int    `env:"SMTP_PORT" envDefault:"587"`
		User string `env:"SMTP_USER"`
		Pass string `env:"SMTP_PASS"`
		From string `env:"SMTP_FROM" envDefault:"no-reply@localhost"`
	}

	NotifyStream string `env:"NOTIFY_STREAM" envDefault:"notifications"` // Redis stream for outgoing mail
}

// LoadConfig loads configuration from .env and the environment
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	return Parse()
}

// Parse reads the configuration from the environment only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.DB.Driver = strings.ToLower(cfg.DB.Driver)
	if cfg.DB.Driver != "mysql" && cfg.DB.Driver != "postgres" {
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	return cfg, nil
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DB.Driver == "postgres" {
		port := c.DB.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.DB.Host, port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
	}
	port := c.DB.Port
	if port == "" {
		port = "3306"
	}
	return c.DB.User + ":" + c.DB.Password + "@tcp(" + c.DB.Host + ":" + port + ")/" + c.DB.Name + "?parseTime=true&charset=utf8mb4&loc=UTC"
}

// SMTPEnabled reports whether outgoing mail goes to a real server
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}
