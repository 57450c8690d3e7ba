package rules

import (
	"testing"

	"balmar-shop/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateTrustScore(t *testing.T) {
	tests := []struct {
		name     string
		user     models.User
		expected int
	}{
		{
			name:     "seeded basic member",
			user:     models.User{AverageRating: 4.8, SuccessfulTransactions: 12, VerificationLevel: models.VerificationBasic},
			expected: 78,
		},
		{
			name:     "perfect biometric seller",
			user:     models.User{AverageRating: 5, SuccessfulTransactions: 20, VerificationLevel: models.VerificationBiometric},
			expected: 100,
		},
		{
			name:     "new unverified member",
			user:     models.User{VerificationLevel: models.VerificationNone},
			expected: 0,
		},
		{
			name:     "history is capped at twenty transactions",
			user:     models.User{AverageRating: 0, SuccessfulTransactions: 500, VerificationLevel: models.VerificationNone},
			expected: 20,
		},
		{
			name:     "rating above five is clamped",
			user:     models.User{AverageRating: 9, SuccessfulTransactions: 0, VerificationLevel: models.VerificationNone},
			expected: 60,
		},
		{
			name:     "negative inputs are clamped",
			user:     models.User{AverageRating: -3, SuccessfulTransactions: -4, VerificationLevel: models.VerificationBasic},
			expected: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateTrustScore(&tt.user)
			assert.Equal(t, tt.expected, result.Score)
		})
	}
}

func TestCalculateTrustScoreBreakdown(t *testing.T) {
	user := &models.User{AverageRating: 4.8, SuccessfulTransactions: 12, VerificationLevel: models.VerificationBasic}

	result := CalculateTrustScore(user)

	assert.True(t, result.Breakdown.ReviewPart.Equal(decimal.RequireFromString("57.6")), result.Breakdown.ReviewPart.String())
	assert.True(t, result.Breakdown.HistoryPart.Equal(decimal.NewFromInt(12)), result.Breakdown.HistoryPart.String())
	assert.True(t, result.Breakdown.KYCPart.Equal(decimal.NewFromInt(8)), result.Breakdown.KYCPart.String())
}

func TestCalculateTrustScoreAlwaysInRange(t *testing.T) {
	levels := []models.VerificationLevel{models.VerificationNone, models.VerificationBasic, models.VerificationBiometric}

	for rating := -2.0; rating <= 7.0; rating += 0.1 {
		for txns := -5; txns <= 40; txns += 3 {
			for _, level := range levels {
				user := &models.User{AverageRating: rating, SuccessfulTransactions: txns, VerificationLevel: level}
				score := CalculateTrustScore(user).Score
				assert.GreaterOrEqual(t, score, 0)
				assert.LessOrEqual(t, score, MaxTrustScore)
			}
		}
	}
}

func TestCalculateTrustScoreMonotonic(t *testing.T) {
	levels := []models.VerificationLevel{models.VerificationNone, models.VerificationBasic, models.VerificationBiometric}

	t.Run("rating", func(t *testing.T) {
		for _, level := range levels {
			prev := -1
			for rating := 0.0; rating <= 5.0; rating += 0.1 {
				score := CalculateTrustScore(&models.User{AverageRating: rating, SuccessfulTransactions: 7, VerificationLevel: level}).Score
				assert.GreaterOrEqual(t, score, prev, "rating %.1f", rating)
				prev = score
			}
		}
	})

	t.Run("history", func(t *testing.T) {
		prev := -1
		for txns := 0; txns <= 30; txns++ {
			score := CalculateTrustScore(&models.User{AverageRating: 3.3, SuccessfulTransactions: txns, VerificationLevel: models.VerificationBasic}).Score
			assert.GreaterOrEqual(t, score, prev, "transactions %d", txns)
			prev = score
		}
	})

	t.Run("verification", func(t *testing.T) {
		prev := -1
		for _, level := range levels {
			score := CalculateTrustScore(&models.User{AverageRating: 4.1, SuccessfulTransactions: 3, VerificationLevel: level}).Score
			assert.GreaterOrEqual(t, score, prev, "level %s", level)
			prev = score
		}
	})
}
