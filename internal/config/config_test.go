package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "200", cfg.Withdraw.MinBalance.String())
	assert.Equal(t, 7*24*time.Hour, cfg.Withdraw.MinAccountAge)
	assert.Equal(t, "0.05", cfg.Withdraw.TaxRate.String())
	assert.Equal(t, "0.3", cfg.Withdraw.ServiceRate.String())
	assert.Equal(t, 72*time.Hour, cfg.Withdraw.IntentTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.False(t, cfg.SMTPEnabled())
}

func TestParseRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Parse()
	assert.Error(t, err)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("WITHDRAW_TAX_RATE", "0.07")
	t.Setenv("WITHDRAW_INTENT_TTL", "0s")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "0.07", cfg.Withdraw.TaxRate.String())
	assert.Zero(t, cfg.Withdraw.IntentTTL)
	assert.True(t, cfg.SMTPEnabled())
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	_, err := Parse()
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestDSN(t *testing.T) {
	cfg := &Config{}
	cfg.DB.Driver = "mysql"
	cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Name = "app", "pw", "db", "wallet"
	assert.Equal(t, "app:pw@tcp(db:3306)/wallet?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DSN())

	cfg.DB.Driver, cfg.DB.Port, cfg.DB.SSLMode = "postgres", "6543", "require"
	assert.Equal(t, "host=db port=6543 user=app password=pw dbname=wallet sslmode=require TimeZone=UTC", cfg.DSN())
}
