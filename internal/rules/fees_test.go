package rules

import (
	"testing"

	"balmar-shop/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateTransactionFees(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		trust    int
		method   models.PaymentMethod
		expected models.FeeStructure
	}{
		{
			name:   "low trust COD pays rounded deposit",
			price:  1200,
			trust:  50,
			method: models.PaymentMethodCOD,
			expected: models.FeeStructure{
				ProductPrice: 1200, ShippingFee: 35, ServiceFee: 60, DepositRequired: 220, Total: 1295,
			},
		},
		{
			name:   "trusted COD above price threshold still needs deposit before bypass",
			price:  1200,
			trust:  80,
			method: models.PaymentMethodCOD,
			expected: models.FeeStructure{
				ProductPrice: 1200, ShippingFee: 35, ServiceFee: 60, DepositRequired: 220, Total: 1295,
			},
		},
		{
			name:   "trusted COD below price threshold",
			price:  800,
			trust:  80,
			method: models.PaymentMethodCOD,
			expected: models.FeeStructure{
				ProductPrice: 800, ShippingFee: 35, ServiceFee: 40, DepositRequired: 0, Total: 875,
			},
		},
		{
			name:   "card never needs a deposit",
			price:  2000,
			trust:  10,
			method: models.PaymentMethodCard,
			expected: models.FeeStructure{
				ProductPrice: 2000, ShippingFee: 35, ServiceFee: 100, DepositRequired: 0, Total: 2135,
			},
		},
		{
			name:   "wallet never needs a deposit",
			price:  2000,
			trust:  10,
			method: models.PaymentMethodWallet,
			expected: models.FeeStructure{
				ProductPrice: 2000, ShippingFee: 35, ServiceFee: 100, DepositRequired: 0, Total: 2135,
			},
		},
		{
			name:   "half service fee rounds up",
			price:  1230,
			trust:  90,
			method: models.PaymentMethodCard,
			expected: models.FeeStructure{
				ProductPrice: 1230, ShippingFee: 35, ServiceFee: 62, DepositRequired: 0, Total: 1327,
			},
		},
		{
			name:   "deposit already on a multiple of ten",
			price:  100,
			trust:  40,
			method: models.PaymentMethodCOD,
			expected: models.FeeStructure{
				ProductPrice: 100, ShippingFee: 35, ServiceFee: 5, DepositRequired: 50, Total: 140,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := &models.Product{ID: "p1", Price: tt.price}
			buyer := &models.User{ID: "u1", TrustScore: tt.trust}

			fees := CalculateTransactionFees(product, buyer, tt.method)
			assert.Equal(t, tt.expected, fees)
		})
	}
}

func TestCalculateTransactionFeesIsDeterministic(t *testing.T) {
	product := &models.Product{ID: "p1", Price: 1777}
	buyer := &models.User{ID: "u1", TrustScore: 42}

	first := CalculateTransactionFees(product, buyer, models.PaymentMethodCOD)
	second := CalculateTransactionFees(product, buyer, models.PaymentMethodCOD)

	assert.Equal(t, first, second)
}

func TestFeePolicyCustomParameters(t *testing.T) {
	policy := DefaultFeePolicy()
	policy.ShippingFee = 20
	policy.DepositRate = decimal.RequireFromString("0.25")
	policy.DepositRounding = 50

	product := &models.Product{Price: 400}
	buyer := &models.User{TrustScore: 10}

	fees := policy.Calculate(product, buyer, models.PaymentMethodCOD)

	// 20 + 20 + 100 = 140, rounded up to 150
	assert.Equal(t, int64(150), fees.DepositRequired)
	assert.Equal(t, int64(440), fees.Total)
}

func TestFeesThenBypass(t *testing.T) {
	product := &models.Product{Price: 1200}
	buyer := &models.User{TrustScore: 80, VerificationLevel: models.VerificationBasic}

	fees := CalculateTransactionFees(product, buyer, models.PaymentMethodCOD)
	fees, bypassed := DefaultBypassPolicy().Apply(fees, buyer)

	assert.True(t, bypassed)
	assert.Equal(t, int64(0), fees.DepositRequired)
	assert.Equal(t, int64(1295), fees.Total)
}
