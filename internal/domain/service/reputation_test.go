package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

func TestScoreExample(t *testing.T) {
	r := Score(vo.ReputationFactors{
		CompletedSessions: 50,
		CancelledSessions: 5,
		AverageRating:     4.8,
		AccountAgeDays:    365,
	})
	// 50 + 15 - 3.636 + 23 + 10 = 94.36
	assert.Equal(t, 94, r.Score)
	assert.Equal(t, TierPlatinum, r.Tier)
}

func TestScoreNewAccount(t *testing.T) {
	r := Score(vo.ReputationFactors{AverageRating: 2.5})
	assert.Equal(t, 50, r.Score)
	assert.Equal(t, TierSilver, r.Tier)
}

func TestScoreRoundsOnceHalfUp(t *testing.T) {
	// 50 + 1.5 = 51.5
	r := Score(vo.ReputationFactors{CompletedSessions: 5, AverageRating: 2.5})
	assert.Equal(t, 52, r.Score)

	// 50 + 0.3 + 0.3 = 50.6; rounding each term first would give 50.
	r = Score(vo.ReputationFactors{CompletedSessions: 1, AverageRating: 2.53})
	assert.Equal(t, 51, r.Score)
}

func TestScoreClampsAndSanitises(t *testing.T) {
	worst := Score(vo.ReputationFactors{CancelledSessions: 1000, AverageRating: 0})
	assert.Equal(t, 0, worst.Score)
	assert.Equal(t, TierBronze, worst.Tier)

	best := Score(vo.ReputationFactors{CompletedSessions: 10_000, AverageRating: 5, AccountAgeDays: 10_000})
	assert.Equal(t, 100, best.Score)
	assert.Equal(t, TierPlatinum, best.Tier)

	garbage := Score(vo.ReputationFactors{CompletedSessions: -10, CancelledSessions: -3, AverageRating: math.NaN(), AccountAgeDays: -1})
	assert.Equal(t, 50, garbage.Score)

	overRated := Score(vo.ReputationFactors{AverageRating: 9})
	assert.Equal(t, Score(vo.ReputationFactors{AverageRating: 5}), overRated)
}

func TestScoreIsBounded(t *testing.T) {
	for completed := 0; completed <= 200; completed += 20 {
		for cancelled := 0; cancelled <= 200; cancelled += 25 {
			for rating := 0.0; rating <= 5.0; rating += 0.5 {
				for _, age := range []int{0, 1, 29, 30, 180, 365, 3650} {
					r := Score(vo.ReputationFactors{
						CompletedSessions: completed,
						CancelledSessions: cancelled,
						AverageRating:     rating,
						AccountAgeDays:    age,
					})
					assert.GreaterOrEqual(t, r.Score, 0)
					assert.LessOrEqual(t, r.Score, 100)
					assert.Equal(t, TierFor(r.Score), r.Tier)
				}
			}
		}
	}
}

func TestTierFor(t *testing.T) {
	cases := map[int]Tier{
		0: TierBronze, 39: TierBronze,
		40: TierSilver, 69: TierSilver,
		70: TierGold, 89: TierGold,
		90: TierPlatinum, 100: TierPlatinum,
	}
	for score, want := range cases {
		assert.Equal(t, want, TierFor(score), score)
	}
}

func TestScoreHandlesHugeSessionCounts(t *testing.T) {
	// 50 + 30 (capped sessions) - ~0 penalty
	r := Score(vo.ReputationFactors{CompletedSessions: math.MaxInt, CancelledSessions: 1, AverageRating: 2.5})
	assert.Equal(t, 80, r.Score)
	assert.Equal(t, TierGold, r.Tier)

	// half of all sessions cancelled: 50 + 30 - 20
	r = Score(vo.ReputationFactors{CompletedSessions: math.MaxInt, CancelledSessions: math.MaxInt, AverageRating: 2.5})
	assert.Equal(t, 60, r.Score)
}
