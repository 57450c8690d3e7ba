package rules

import "balmar-shop/internal/models"

// BypassPolicy decides when a buyer may skip the cash-on-delivery deposit
type BypassPolicy struct {
	TrustThreshold        int
	TrustPriceCeiling     int64
	BiometricPriceCeiling int64
}

// DefaultBypassPolicy returns the marketplace defaults
func DefaultBypassPolicy() BypassPolicy {
	return BypassPolicy{
		TrustThreshold:        70,
		TrustPriceCeiling:     1500,
		BiometricPriceCeiling: 3000,
	}
}

// CanBypass reports whether the buyer is trusted enough to skip the deposit at this price
func (p BypassPolicy) CanBypass(user *models.User, productPrice int64) bool {
	if user.TrustScore >= p.TrustThreshold && productPrice < p.TrustPriceCeiling {
		return true
	}
	if user.VerificationLevel == models.VerificationBiometric && productPrice < p.BiometricPriceCeiling {
		return true
	}
	return false
}

// Apply zeroes the deposit of fees when the buyer qualifies.
// The second return value reports whether a non-zero deposit was waived.
func (p BypassPolicy) Apply(fees models.FeeStructure, buyer *models.User) (models.FeeStructure, bool) {
	if fees.DepositRequired == 0 || !p.CanBypass(buyer, fees.ProductPrice) {
		return fees, false
	}
	fees.DepositRequired = 0
	return fees, true
}

// CanBypassDeposit applies the default bypass policy
func CanBypassDeposit(user *models.User, productPrice int64) bool {
	return DefaultBypassPolicy().CanBypass(user, productPrice)
}
