package valueobject

import (
	"math"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

// ReputationFactors is historical performance data supplied by the sessions and
// reviews subsystems at scoring time. It is input, never stored by the user domain.
type ReputationFactors struct {
	CompletedSessions int     `json:"completed_sessions"`
	CancelledSessions int     `json:"cancelled_sessions"`
	AverageRating     float64 `json:"average_rating"`
	AccountAgeDays    int     `json:"account_age_days"`
}

func (f ReputationFactors) Validate() error {
	var errs domainerr.ValidationErrors
	if f.CompletedSessions < 0 {
		errs = append(errs, *domainerr.NewValidationError("completed_sessions", "must be at least 0", f.CompletedSessions))
	}
	if f.CancelledSessions < 0 {
		errs = append(errs, *domainerr.NewValidationError("cancelled_sessions", "must be at least 0", f.CancelledSessions))
	}
	if math.IsNaN(f.AverageRating) || f.AverageRating < MinRating || f.AverageRating > MaxRating {
		errs = append(errs, *domainerr.NewValidationError("average_rating", "must be between 0 and 5", f.AverageRating))
	}
	if f.AccountAgeDays < 0 {
		errs = append(errs, *domainerr.NewValidationError("account_age_days", "must be at least 0", f.AccountAgeDays))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// WithAccountAgeDays returns a copy carrying an authoritative account age.
func (f ReputationFactors) WithAccountAgeDays(days int) ReputationFactors {
	f.AccountAgeDays = days
	return f
}
