package service

import (
	"math"

	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

// Tier is a coarse reputation label.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

const (
	reputationBaseline  = 50.0
	sessionCap          = 100
	sessionWeight       = 0.3
	cancellationPenalty = 40.0
	ratingMidpoint      = 2.5
	ratingWeight        = 10.0
	accountAgeCapDays   = 365
	accountAgeWeight    = 10.0
)

// Tier floors.
const (
	silverFloor   = 40
	goldFloor     = 70
	platinumFloor = 90
)

// Reputation is a bounded score with its tier.
type Reputation struct {
	Score int  `json:"score"`
	Tier  Tier `json:"tier"`
}

// Score computes reputation from historical factors. Out-of-range input is clamped
// rather than rejected, so the function is total; rounding (half up) happens once.
func Score(f vo.ReputationFactors) Reputation {
	completed := max(f.CompletedSessions, 0)
	cancelled := max(f.CancelledSessions, 0)
	rating := f.AverageRating
	if math.IsNaN(rating) {
		rating = ratingMidpoint
	}
	rating = math.Min(math.Max(rating, vo.MinRating), vo.MaxRating)
	ageDays := max(f.AccountAgeDays, 0)

	raw := reputationBaseline
	raw += float64(min(completed, sessionCap)) * sessionWeight
	raw -= float64(cancelled) / math.Max(float64(completed)+float64(cancelled), 1) * cancellationPenalty
	raw += (rating - ratingMidpoint) * ratingWeight
	raw += float64(min(ageDays, accountAgeCapDays)) / accountAgeCapDays * accountAgeWeight

	raw = math.Min(math.Max(raw, 0), 100)
	score := int(math.Floor(raw + 0.5))
	return Reputation{Score: score, Tier: TierFor(score)}
}

// TierFor maps a score to its tier.
func TierFor(score int) Tier {
	switch {
	case score >= platinumFloor:
		return TierPlatinum
	case score >= goldFloor:
		return TierGold
	case score >= silverFloor:
		return TierSilver
	default:
		return TierBronze
	}
}
