package service

import (
	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

// Self-service tutor eligibility.
const (
	TutorCompletenessThreshold = 70
	MinTutorAccountAgeDays     = 30
	MinTutorAge                = 18
)

// TransitionRequest carries every input the rule engine needs. Age is only
// meaningful when AgeKnown is true.
type TransitionRequest struct {
	From         vo.Role
	To           vo.Role
	Initiator    vo.Role
	Completeness int
	Factors      vo.ReputationFactors
	Age          int
	AgeKnown     bool
}

// Decision is the outcome of a role transition evaluation. Reason is empty when allowed.
type Decision struct {
	Allowed  bool
	Override bool
	Reason   domainerr.Reason
	Message  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason domainerr.Reason, msg string) Decision {
	return Decision{Reason: reason, Message: msg}
}

// CanTransition evaluates the role decision table; the first matching rule wins.
//
//  1. from == to                              -> deny NoOpTransition
//  2. to is Admin/SuperAdmin                  -> allow only when initiated by SuperAdmin
//  3. Student -> Tutor                        -> Admin/SuperAdmin override, else eligibility
//  4. Tutor -> Student                        -> allow
//  5. anything else                           -> deny UnsupportedTransition
func CanTransition(req TransitionRequest) Decision {
	if !req.From.Valid() || !req.To.Valid() || !req.Initiator.Valid() {
		return deny(domainerr.ReasonUnsupportedTransition, "unknown role")
	}

	if req.From == req.To {
		return deny(domainerr.ReasonNoOpTransition, "user already has role "+req.To.String())
	}

	if req.To.Administrative() {
		if req.Initiator != vo.RoleSuperAdmin {
			return deny(domainerr.ReasonUnauthorizedInitiator, "only a super admin may grant "+req.To.String())
		}
		return allow()
	}

	if req.From == vo.RoleStudent && req.To == vo.RoleTutor {
		if req.Initiator.Administrative() {
			d := allow()
			d.Override = true
			return d
		}
		return tutorEligibility(req)
	}

	if req.From == vo.RoleTutor && req.To == vo.RoleStudent {
		return allow()
	}

	return deny(domainerr.ReasonUnsupportedTransition, "cannot change role from "+req.From.String()+" to "+req.To.String())
}

func tutorEligibility(req TransitionRequest) Decision {
	if req.Completeness < TutorCompletenessThreshold {
		return deny(domainerr.ReasonInsufficientProfileCompleteness, "profile must be at least 70% complete")
	}
	if req.Factors.AccountAgeDays < MinTutorAccountAgeDays {
		return deny(domainerr.ReasonIneligibleAccountAge, "account must be at least 30 days old")
	}
	if !req.AgeKnown || req.Age < MinTutorAge {
		return deny(domainerr.ReasonUnderMinimumAge, "tutors must be at least 18 years old")
	}
	return allow()
}

// Err converts a denial into a BusinessRuleViolationError; it returns nil when allowed.
func (d Decision) Err(req TransitionRequest) error {
	if d.Allowed {
		return nil
	}
	ctx := map[string]interface{}{
		"from":      req.From,
		"to":        req.To,
		"initiator": req.Initiator,
	}
	switch d.Reason {
	case domainerr.ReasonInsufficientProfileCompleteness:
		ctx["completeness"] = req.Completeness
		ctx["required"] = TutorCompletenessThreshold
	case domainerr.ReasonIneligibleAccountAge:
		ctx["account_age_days"] = req.Factors.AccountAgeDays
		ctx["required"] = MinTutorAccountAgeDays
	case domainerr.ReasonUnderMinimumAge:
		if req.AgeKnown {
			ctx["age"] = req.Age
		}
		ctx["required"] = MinTutorAge
	}
	return domainerr.NewBusinessRuleViolation(d.Reason, d.Message, ctx)
}
