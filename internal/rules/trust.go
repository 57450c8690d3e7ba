// Package rules holds the marketplace business rules: trust scoring, deposit
// policy, fee calculation and the transaction status machine. Every function
// here is pure; callers own persistence.
package rules

import (
	"balmar-shop/internal/models"

	"github.com/shopspring/decimal"
)

var (
	reviewWeight  = decimal.RequireFromString("0.6")
	historyWeight = decimal.RequireFromString("0.2")
	kycWeight     = decimal.RequireFromString("0.2")

	hundred = decimal.NewFromInt(100)
)

const (
	// NeutralTrustScore is assigned at signup
	NeutralTrustScore = 50
	MaxTrustScore     = 100

	historyPointsPerTransaction = 5
)

// TrustBreakdown holds the weighted parts of a trust score, one decimal place each
type TrustBreakdown struct {
	ReviewPart  decimal.Decimal `json:"review_part"`
	HistoryPart decimal.Decimal `json:"history_part"`
	KYCPart     decimal.Decimal `json:"kyc_part"`
}

// TrustScore is the result of CalculateTrustScore
type TrustScore struct {
	Score     int            `json:"score"`
	Breakdown TrustBreakdown `json:"breakdown"`
}

// CalculateTrustScore derives a 0-100 score: 60% reviews, 20% history, 20% KYC.
func CalculateTrustScore(user *models.User) TrustScore {
	// 5 stars maps to 100 points
	review := clampComponent(decimal.NewFromFloat(user.AverageRating).Mul(decimal.NewFromInt(20)))
	history := clampComponent(decimal.NewFromInt(int64(user.SuccessfulTransactions) * historyPointsPerTransaction))
	kyc := decimal.NewFromInt(kycPoints(user.VerificationLevel))

	weightedReview := review.Mul(reviewWeight)
	weightedHistory := history.Mul(historyWeight)
	weightedKYC := kyc.Mul(kycWeight)

	total := weightedReview.Add(weightedHistory).Add(weightedKYC)

	return TrustScore{
		Score: int(total.Round(0).IntPart()),
		Breakdown: TrustBreakdown{
			ReviewPart:  weightedReview.Round(1),
			HistoryPart: weightedHistory.Round(1),
			KYCPart:     weightedKYC.Round(1),
		},
	}
}

func kycPoints(level models.VerificationLevel) int64 {
	switch level {
	case models.VerificationBiometric:
		return 100
	case models.VerificationBasic:
		return 40
	case models.VerificationNone:
		return 0
	}
	return 0
}

func clampComponent(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(hundred) {
		return hundred
	}
	return v
}
