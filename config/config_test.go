package config

import (
	"testing"
	"time"

	"balmar-shop/internal/rules"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, rules.DefaultFeePolicy(), cfg.FeePolicy())
	assert.Equal(t, rules.DefaultBypassPolicy(), cfg.BypassPolicy())
	assert.Equal(t, 4*time.Second, cfg.Business.KYCDelay)
}

func TestLoadBusinessOverrides(t *testing.T) {
	t.Setenv("SHIPPING_FEE", "40")
	t.Setenv("SERVICE_FEE_RATE", "0.07")
	t.Setenv("DEPOSIT_ROUNDING", "5")
	t.Setenv("BYPASS_TRUST_THRESHOLD", "75")
	t.Setenv("KYC_DELAY", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()

	fees := cfg.FeePolicy()
	assert.Equal(t, int64(40), fees.ShippingFee)
	assert.True(t, fees.ServiceFeeRate.Equal(decimal.RequireFromString("0.07")))
	assert.Equal(t, int64(5), fees.DepositRounding)
	assert.Equal(t, 75, cfg.BypassPolicy().TrustThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Business.KYCDelay)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SHIPPING_FEE", "free")
	t.Setenv("DEPOSIT_RATE", "ten percent")

	cfg := Load()

	assert.Equal(t, int64(35), cfg.Business.ShippingFee)
	assert.True(t, cfg.Business.DepositRate.Equal(decimal.RequireFromString("0.10")))
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Env: "production"},
		Auth:   AuthConfig{JWTSecret: DefaultJWTSecret},
	}
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "s3cr3t-from-vault"
	assert.NoError(t, cfg.Validate())

	dev := &Config{Server: ServerConfig{Env: "development"}, Auth: AuthConfig{JWTSecret: DefaultJWTSecret}}
	assert.NoError(t, dev.Validate())
}
