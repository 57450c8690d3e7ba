package rules

import (
	"testing"

	"balmar-shop/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanBypassDeposit(t *testing.T) {
	tests := []struct {
		name     string
		trust    int
		level    models.VerificationLevel
		price    int64
		expected bool
	}{
		{"trusted below ceiling", 80, models.VerificationBasic, 1200, true},
		{"trusted at threshold", 70, models.VerificationBasic, 1499, true},
		{"trusted at ceiling", 80, models.VerificationBasic, 1500, false},
		{"biometric below ceiling", 20, models.VerificationBiometric, 2999, true},
		{"biometric at ceiling", 95, models.VerificationBiometric, 3000, false},
		{"untrusted basic", 69, models.VerificationBasic, 100, false},
		{"untrusted unverified", 0, models.VerificationNone, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{TrustScore: tt.trust, VerificationLevel: tt.level}
			assert.Equal(t, tt.expected, CanBypassDeposit(user, tt.price))
		})
	}
}

func TestCanBypassDepositRequiresTrustOrBiometric(t *testing.T) {
	for trust := 0; trust < 70; trust += 7 {
		for _, level := range []models.VerificationLevel{models.VerificationNone, models.VerificationBasic} {
			for price := int64(1); price < 5000; price += 333 {
				user := &models.User{TrustScore: trust, VerificationLevel: level}
				assert.False(t, CanBypassDeposit(user, price), "trust=%d level=%s price=%d", trust, level, price)
			}
		}
	}
}

func TestBypassPolicyApplyKeepsZeroDeposit(t *testing.T) {
	fees := models.FeeStructure{ProductPrice: 500, ShippingFee: 35, ServiceFee: 25, Total: 560}
	user := &models.User{TrustScore: 99}

	result, bypassed := DefaultBypassPolicy().Apply(fees, user)

	assert.False(t, bypassed)
	assert.Equal(t, fees, result)
}
