package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/event"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/service"
	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

// User is the aggregate root of the user domain. Every state change goes
// through a method here; each successful mutation appends exactly one event.
type User struct {
	id           string
	email        vo.Email
	profile      vo.Profile
	preferences  vo.Preferences
	role         vo.Role
	status       vo.Status
	statusReason string
	createdAt    time.Time
	updatedAt    time.Time
	lastLoginAt  *time.Time
	version      int64

	events event.Log
	clock  func() time.Time
}

type Option func(*User)

// WithRole sets the initial role. The default is Student.
func WithRole(r vo.Role) Option {
	return func(u *User) { u.role = r }
}

func WithClock(clock func() time.Time) Option {
	return func(u *User) { u.clock = clock }
}

func defaultClock() time.Time { return time.Now().UTC() }

// Create builds a new user in PendingVerification and records UserCreated.
func Create(email, firstName, lastName string, opts ...Option) (*User, error) {
	var errs domainerr.ValidationErrors

	addr, err := vo.NewEmail(email)
	if err != nil {
		errs = appendValidation(errs, err)
	}
	profile, err := vo.NewProfile(vo.ProfileParams{FirstName: firstName, LastName: lastName})
	if err != nil {
		errs = appendValidation(errs, err)
	}

	u := &User{
		id:          uuid.NewString(),
		email:       addr,
		profile:     profile,
		preferences: vo.DefaultPreferences(),
		role:        vo.RoleStudent,
		status:      vo.StatusPendingVerification,
		clock:       defaultClock,
	}
	for _, opt := range opts {
		opt(u)
	}
	if !u.role.Valid() {
		errs = append(errs, *domainerr.NewValidationError("role", "must be one of student, tutor, admin, super_admin", string(u.role)))
	}
	if len(errs) > 0 {
		return nil, errs
	}

	now := u.now()
	u.createdAt, u.updatedAt = now, now
	u.events.Append(event.NewUserCreated(u.id, now, u.email.String(), u.role, u.status))
	return u, nil
}

// UserSnapshot is the persisted shape of a user.
type UserSnapshot struct {
	ID           string
	Email        string
	Profile      vo.ProfileParams
	Preferences  vo.PreferencesParams
	Role         vo.Role
	Status       vo.Status
	StatusReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
	Version      int64
}

// Reconstitute rehydrates a stored user. No events are recorded.
func Reconstitute(s UserSnapshot, opts ...Option) (*User, error) {
	if _, err := uuid.Parse(s.ID); err != nil {
		return nil, domainerr.NewValidationError("id", "must be a valid UUID", s.ID)
	}
	addr, err := vo.NewEmail(s.Email)
	if err != nil {
		return nil, err
	}
	profile, err := vo.NewProfile(s.Profile)
	if err != nil {
		return nil, err
	}
	prefs, err := vo.NewPreferences(s.Preferences)
	if err != nil {
		return nil, err
	}
	if !s.Role.Valid() {
		return nil, domainerr.NewValidationError("role", "unknown role", string(s.Role))
	}
	if !s.Status.Valid() {
		return nil, domainerr.NewValidationError("status", "unknown status", string(s.Status))
	}

	u := &User{
		id:           s.ID,
		email:        addr,
		profile:      profile,
		preferences:  prefs,
		role:         s.Role,
		status:       s.Status,
		statusReason: s.StatusReason,
		createdAt:    s.CreatedAt.UTC(),
		updatedAt:    s.UpdatedAt.UTC(),
		version:      s.Version,
		clock:        defaultClock,
	}
	if s.LastLoginAt != nil {
		t := s.LastLoginAt.UTC()
		u.lastLoginAt = &t
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

func (u *User) Snapshot() UserSnapshot {
	s := UserSnapshot{
		ID:           u.id,
		Email:        u.email.String(),
		Profile:      u.profile.Params(),
		Preferences:  u.preferences.Params(),
		Role:         u.role,
		Status:       u.status,
		StatusReason: u.statusReason,
		CreatedAt:    u.createdAt,
		UpdatedAt:    u.updatedAt,
		Version:      u.version,
	}
	if u.lastLoginAt != nil {
		t := *u.lastLoginAt
		s.LastLoginAt = &t
	}
	return s
}

func (u *User) ID() string { return u.id }

func (u *User) Email() vo.Email { return u.email }

func (u *User) Profile() vo.Profile { return u.profile }

func (u *User) Preferences() vo.Preferences { return u.preferences }

func (u *User) Role() vo.Role { return u.role }

func (u *User) Status() vo.Status { return u.status }

// StatusReason is the reason given for the latest suspension or deactivation.
func (u *User) StatusReason() string { return u.statusReason }

func (u *User) CreatedAt() time.Time { return u.createdAt }

func (u *User) UpdatedAt() time.Time { return u.updatedAt }

func (u *User) LastLoginAt() (time.Time, bool) {
	if u.lastLoginAt == nil {
		return time.Time{}, false
	}
	return *u.lastLoginAt, true
}

// Version is the optimistic-concurrency counter of the stored row; 0 before the first save.
func (u *User) Version() int64 { return u.version }

// MarkPersisted is called by repositories after a successful write.
func (u *User) MarkPersisted(version int64) { u.version = version }

func (u *User) Completeness() int { return service.Completeness(u.profile) }

// AccountAgeDays counts whole days since creation.
func (u *User) AccountAgeDays(now time.Time) int {
	d := now.Sub(u.createdAt)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// Reputation scores the user with externally supplied factors. The account age
// always comes from the aggregate itself.
func (u *User) Reputation(f vo.ReputationFactors) service.Reputation {
	return service.Score(f.WithAccountAgeDays(u.AccountAgeDays(u.now())))
}

func (u *User) PendingEvents() []event.Event { return u.events.Pending() }

// CommitEvents drains the pending events. A second call without an intervening
// mutation returns an empty slice.
func (u *User) CommitEvents() []event.Event { return u.events.Commit() }

func (u *User) Activate() error {
	if u.status != vo.StatusPendingVerification {
		return domainerr.NewInvalidStateTransition("activate", u.status.String())
	}
	now := u.touch()
	u.status = vo.StatusActive
	u.events.Append(event.NewUserActivated(u.id, now, false))
	return nil
}

// Reinstate lifts a suspension.
func (u *User) Reinstate() error {
	if u.status != vo.StatusSuspended {
		return domainerr.NewInvalidStateTransition("reinstate", u.status.String())
	}
	now := u.touch()
	u.status = vo.StatusActive
	u.statusReason = ""
	u.events.Append(event.NewUserActivated(u.id, now, true))
	return nil
}

func (u *User) Suspend(reason string) error {
	return u.leaveActive("suspend", vo.StatusSuspended, reason)
}

// Deactivate is permanent; no method succeeds afterwards.
func (u *User) Deactivate(reason string) error {
	return u.leaveActive("deactivate", vo.StatusDeactivated, reason)
}

func (u *User) leaveActive(op string, to vo.Status, reason string) error {
	if u.status != vo.StatusActive {
		return domainerr.NewInvalidStateTransition(op, u.status.String())
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domainerr.NewValidationError("reason", "is required", nil)
	}
	now := u.touch()
	u.status = to
	u.statusReason = reason
	u.events.Append(event.NewUserDeactivated(u.id, now, to, reason))
	return nil
}

// UpdateProfile replaces the profile. An identical profile is a no-op.
func (u *User) UpdateProfile(p vo.Profile) error {
	if err := u.ensureMutable("update profile"); err != nil {
		return err
	}
	if p.IsZero() {
		return domainerr.NewValidationError("profile", "is required", nil)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if dob, ok := p.DateOfBirth(); ok && dob.After(u.now()) {
		return domainerr.NewValidationError(vo.FieldDateOfBirth, "must not be in the future", dob.Format(time.DateOnly))
	}
	changed := u.profile.Diff(p)
	if len(changed) == 0 {
		return nil
	}
	now := u.touch()
	u.profile = p
	u.events.Append(event.NewProfileUpdated(u.id, now, changed))
	return nil
}

// UpdatePreferences replaces the preferences; mandatory alerts stay enabled.
func (u *User) UpdatePreferences(p vo.Preferences) error {
	if err := u.ensureMutable("update preferences"); err != nil {
		return err
	}
	if p.IsZero() {
		return domainerr.NewValidationError("preferences", "is required", nil)
	}
	normalized, err := vo.NewPreferences(p.Params())
	if err != nil {
		return err
	}
	changed := u.preferences.Diff(normalized)
	if len(changed) == 0 {
		return nil
	}
	now := u.touch()
	u.preferences = normalized
	u.events.Append(event.NewPreferencesChanged(u.id, now, changed))
	return nil
}

// ChangeEmail replaces the address. Uniqueness is the repository's concern.
func (u *User) ChangeEmail(raw string) error {
	if err := u.ensureMutable("change email"); err != nil {
		return err
	}
	next, err := vo.NewEmail(raw)
	if err != nil {
		return err
	}
	if next.Equals(u.email) {
		return domainerr.NewValidationError("email", "must differ from the current email", next.String())
	}
	prev := u.email
	now := u.touch()
	u.email = next
	u.events.Append(event.NewEmailChanged(u.id, now, prev.String(), next.String()))
	return nil
}

// ChangeRole asks the rule engine whether initiator may move the user to target.
func (u *User) ChangeRole(target, initiator vo.Role, factors vo.ReputationFactors) error {
	if u.status != vo.StatusActive {
		return domainerr.NewInvalidStateTransition("change role", u.status.String())
	}
	if err := factors.Validate(); err != nil {
		return err
	}
	now := u.now()
	age, known := u.profile.Age(now)
	req := service.TransitionRequest{
		From:         u.role,
		To:           target,
		Initiator:    initiator,
		Completeness: u.Completeness(),
		Factors:      factors.WithAccountAgeDays(u.AccountAgeDays(now)),
		Age:          age,
		AgeKnown:     known,
	}
	decision := service.CanTransition(req)
	if !decision.Allowed {
		return decision.Err(req)
	}
	from := u.role
	u.touch()
	u.role = target
	u.events.Append(event.NewRoleChanged(u.id, u.updatedAt, from, target, initiator))
	return nil
}

func (u *User) RecordLogin(at time.Time) error {
	if err := u.ensureMutable("record login"); err != nil {
		return err
	}
	if at.IsZero() {
		return domainerr.NewValidationError("login_at", "is required", nil)
	}
	at = at.UTC()
	now := u.touch()
	u.lastLoginAt = &at
	u.events.Append(event.NewLoginRecorded(u.id, now, at))
	return nil
}

func (u *User) ensureMutable(op string) error {
	if u.status.Terminal() {
		return domainerr.NewInvalidStateTransition(op, u.status.String())
	}
	return nil
}

func (u *User) now() time.Time {
	if u.clock == nil {
		return defaultClock()
	}
	return u.clock().UTC()
}

func (u *User) touch() time.Time {
	u.updatedAt = u.now()
	return u.updatedAt
}

func appendValidation(errs domainerr.ValidationErrors, err error) domainerr.ValidationErrors {
	switch e := err.(type) {
	case domainerr.ValidationErrors:
		return append(errs, e...)
	case *domainerr.ValidationError:
		return append(errs, *e)
	}
	return append(errs, *domainerr.NewValidationError("", err.Error(), nil))
}
