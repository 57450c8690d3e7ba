package rules

import (
	"balmar-shop/internal/models"

	"github.com/shopspring/decimal"
)

// FeePolicy holds the parameters of the fee calculator. Amounts are whole MAD.
type FeePolicy struct {
	ShippingFee     int64
	ServiceFeeRate  decimal.Decimal
	DepositRate     decimal.Decimal
	DepositRounding int64

	// A COD deposit is required below this trust score or above this price
	DepositTrustThreshold int
	DepositPriceThreshold int64
}

// DefaultFeePolicy returns the marketplace defaults
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		ShippingFee:           35,
		ServiceFeeRate:        decimal.RequireFromString("0.05"),
		DepositRate:           decimal.RequireFromString("0.10"),
		DepositRounding:       10,
		DepositTrustThreshold: 70,
		DepositPriceThreshold: 1000,
	}
}

// Calculate computes shipping, service fee, deposit and total for a purchase.
// It does not apply the deposit bypass; see BypassPolicy.Apply.
func (p FeePolicy) Calculate(product *models.Product, buyer *models.User, method models.PaymentMethod) models.FeeStructure {
	price := decimal.NewFromInt(product.Price)
	serviceFee := price.Mul(p.ServiceFeeRate).Round(0).IntPart()

	var deposit int64
	if method == models.PaymentMethodCOD &&
		(buyer.TrustScore < p.DepositTrustThreshold || product.Price > p.DepositPriceThreshold) {
		raw := decimal.NewFromInt(p.ShippingFee + serviceFee).Add(price.Mul(p.DepositRate))
		deposit = p.roundUp(raw)
	}

	return models.FeeStructure{
		ProductPrice:    product.Price,
		ShippingFee:     p.ShippingFee,
		ServiceFee:      serviceFee,
		DepositRequired: deposit,
		Total:           product.Price + p.ShippingFee + serviceFee,
	}
}

func (p FeePolicy) roundUp(v decimal.Decimal) int64 {
	if p.DepositRounding <= 1 {
		return v.Ceil().IntPart()
	}
	step := decimal.NewFromInt(p.DepositRounding)
	return v.Div(step).Ceil().Mul(step).IntPart()
}

// CalculateTransactionFees applies the default fee policy
func CalculateTransactionFees(product *models.Product, buyer *models.User, method models.PaymentMethod) models.FeeStructure {
	return DefaultFeePolicy().Calculate(product, buyer, method)
}
