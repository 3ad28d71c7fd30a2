// Package event defines the domain events emitted by the user aggregate.
package event

import (
	"time"

	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

// Type names an event on the wire.
type Type string

const (
	TypeUserCreated        Type = "user.created"
	TypeUserActivated      Type = "user.activated"
	TypeUserDeactivated    Type = "user.deactivated"
	TypeRoleChanged        Type = "user.role_changed"
	TypeProfileUpdated     Type = "user.profile_updated"
	TypePreferencesChanged Type = "user.preferences_changed"
	TypeLoginRecorded      Type = "user.login_recorded"
	TypeEmailChanged       Type = "user.email_changed"
)

// Event is the closed set of user domain events. The unexported method keeps
// implementations inside this package.
type Event interface {
	EventType() Type
	AggregateID() string
	OccurredAt() time.Time
	sealed()
}

// Metadata is common to every event.
type Metadata struct {
	UserID string    `json:"user_id"`
	At     time.Time `json:"occurred_at"`
}

func (m Metadata) AggregateID() string { return m.UserID }

func (m Metadata) OccurredAt() time.Time { return m.At }

func (Metadata) sealed() {}

func meta(userID string, at time.Time) Metadata {
	return Metadata{UserID: userID, At: at.UTC()}
}

type UserCreated struct {
	Metadata
	Email  string    `json:"email"`
	Role   vo.Role   `json:"role"`
	Status vo.Status `json:"status"`
}

func NewUserCreated(userID string, at time.Time, email string, role vo.Role, status vo.Status) UserCreated {
	return UserCreated{Metadata: meta(userID, at), Email: email, Role: role, Status: status}
}

func (UserCreated) EventType() Type { return TypeUserCreated }

// UserActivated is emitted on first activation and on reinstatement after a suspension.
type UserActivated struct {
	Metadata
	Reinstated bool `json:"reinstated"`
}

func NewUserActivated(userID string, at time.Time, reinstated bool) UserActivated {
	return UserActivated{Metadata: meta(userID, at), Reinstated: reinstated}
}

func (UserActivated) EventType() Type { return TypeUserActivated }

// UserDeactivated covers both suspension and permanent deactivation; Status tells them apart.
type UserDeactivated struct {
	Metadata
	Status vo.Status `json:"status"`
	Reason string    `json:"reason"`
}

func NewUserDeactivated(userID string, at time.Time, status vo.Status, reason string) UserDeactivated {
	return UserDeactivated{Metadata: meta(userID, at), Status: status, Reason: reason}
}

func (UserDeactivated) EventType() Type { return TypeUserDeactivated }

type RoleChanged struct {
	Metadata
	From          vo.Role `json:"from"`
	To            vo.Role `json:"to"`
	InitiatorRole vo.Role `json:"initiator_role"`
}

func NewRoleChanged(userID string, at time.Time, from, to, initiator vo.Role) RoleChanged {
	return RoleChanged{Metadata: meta(userID, at), From: from, To: to, InitiatorRole: initiator}
}

func (RoleChanged) EventType() Type { return TypeRoleChanged }

type ProfileUpdated struct {
	Metadata
	ChangedFields []string `json:"changed_fields"`
}

func NewProfileUpdated(userID string, at time.Time, changed []string) ProfileUpdated {
	return ProfileUpdated{Metadata: meta(userID, at), ChangedFields: cloneStrings(changed)}
}

func (ProfileUpdated) EventType() Type { return TypeProfileUpdated }

// Fields returns a copy of the changed field names.
func (e ProfileUpdated) Fields() []string { return cloneStrings(e.ChangedFields) }

type PreferencesChanged struct {
	Metadata
	ChangedFields []string `json:"changed_fields"`
}

func NewPreferencesChanged(userID string, at time.Time, changed []string) PreferencesChanged {
	return PreferencesChanged{Metadata: meta(userID, at), ChangedFields: cloneStrings(changed)}
}

func (PreferencesChanged) EventType() Type { return TypePreferencesChanged }

func (e PreferencesChanged) Fields() []string { return cloneStrings(e.ChangedFields) }

type LoginRecorded struct {
	Metadata
	LoginAt time.Time `json:"login_at"`
}

func NewLoginRecorded(userID string, at, loginAt time.Time) LoginRecorded {
	return LoginRecorded{Metadata: meta(userID, at), LoginAt: loginAt.UTC()}
}

func (LoginRecorded) EventType() Type { return TypeLoginRecorded }

type EmailChanged struct {
	Metadata
	From string `json:"from"`
	To   string `json:"to"`
}

func NewEmailChanged(userID string, at time.Time, from, to string) EmailChanged {
	return EmailChanged{Metadata: meta(userID, at), From: from, To: to}
}

func (EmailChanged) EventType() Type { return TypeEmailChanged }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
