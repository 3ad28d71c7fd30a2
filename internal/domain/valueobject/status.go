package valueobject

import (
	"strings"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
)

// Status is the account lifecycle state.
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusActive              Status = "active"
	StatusSuspended           Status = "suspended"
	StatusDeactivated         Status = "deactivated"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", domainerr.NewValidationError("status", "must be one of: pending_verification, active, suspended, deactivated", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingVerification, StatusActive, StatusSuspended, StatusDeactivated:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition is possible.
func (s Status) Terminal() bool { return s == StatusDeactivated }

func (s Status) String() string { return string(s) }
