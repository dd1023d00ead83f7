package withdraw

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFees(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		amount, tax, service string
	}{
		{"300", "15.00", "90.00"},
		{"100.005", "5.00", "30.00"},
		{"200", "10.00", "60.00"},
		{"0.10", "0.01", "0.03"},
		{"33.33", "1.67", "10.00"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			tax, service := Fees(decimal.RequireFromString(tt.amount), cfg.TaxRate, cfg.ServiceRate)
			assert.Equal(t, tt.tax, tax.StringFixed(2))
			assert.Equal(t, tt.service, service.StringFixed(2))
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/payout", normalizeURL("example.com/payout"))
	assert.Equal(t, "http://example.com", normalizeURL("http://example.com"))
	assert.Equal(t, "HTTPS://example.com", normalizeURL("HTTPS://example.com"))
}
