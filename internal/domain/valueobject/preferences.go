package valueobject

import (
	"sort"
	"strings"
	_ "time/tzdata" // timezone validation must not depend on the host zoneinfo

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
)

// NotificationKind is one of the fixed notification channels a user can toggle.
type NotificationKind string

const (
	NotifySessionReminders NotificationKind = "session_reminders"
	NotifyBookingUpdates   NotificationKind = "booking_updates"
	NotifyNewMessages      NotificationKind = "new_messages"
	NotifyReviews          NotificationKind = "reviews"
	NotifyMarketing        NotificationKind = "marketing"
	NotifyProductUpdates   NotificationKind = "product_updates"
	NotifySecurityAlerts   NotificationKind = "security_alerts"
	NotifyLoginAlerts      NotificationKind = "login_alerts"
)

// Preferences field names, as reported in PreferencesChanged diffs.
const (
	FieldLanguage = "language"
	FieldTimezone = "timezone"
)

const (
	DefaultLanguage = "en"
	DefaultTimezone = "UTC"
)

// NotificationKinds returns every kind in a stable order.
func NotificationKinds() []NotificationKind {
	return []NotificationKind{
		NotifySessionReminders,
		NotifyBookingUpdates,
		NotifyNewMessages,
		NotifyReviews,
		NotifyMarketing,
		NotifyProductUpdates,
		NotifySecurityAlerts,
		NotifyLoginAlerts,
	}
}

// Mandatory reports whether the kind is a security alert that can never be disabled.
func (k NotificationKind) Mandatory() bool {
	return k == NotifySecurityAlerts || k == NotifyLoginAlerts
}

func (k NotificationKind) Valid() bool {
	for _, known := range NotificationKinds() {
		if k == known {
			return true
		}
	}
	return false
}

func (k NotificationKind) defaultEnabled() bool { return k != NotifyMarketing }

// PreferencesParams is the raw, unvalidated shape of preferences. Kinds missing
// from Notifications take their default.
type PreferencesParams struct {
	Notifications map[NotificationKind]bool
	Language      string
	Timezone      string
}

// Preferences holds notification toggles, language and timezone.
type Preferences struct {
	notifications map[NotificationKind]bool
	language      string
	timezone      string
}

func NewPreferences(p PreferencesParams) (Preferences, error) {
	var errs domainerr.ValidationErrors

	flags := make(map[NotificationKind]bool, len(NotificationKinds()))
	for _, k := range NotificationKinds() {
		flags[k] = k.defaultEnabled()
	}
	unknown := make([]string, 0)
	for k, on := range p.Notifications {
		if !k.Valid() {
			unknown = append(unknown, string(k))
			continue
		}
		flags[k] = on
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		errs = append(errs, *domainerr.NewValidationError("notifications", "unknown notification kinds: "+strings.Join(unknown, ", "), unknown))
	}
	for k := range flags {
		if k.Mandatory() {
			flags[k] = true
		}
	}

	lang := strings.TrimSpace(p.Language)
	if lang == "" {
		lang = DefaultLanguage
	}
	if err := checkVar(FieldLanguage, lang, "bcp47_language_tag", "must be a valid BCP 47 language tag"); err != nil {
		errs = append(errs, *err)
	}

	tz := strings.TrimSpace(p.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	if err := checkVar(FieldTimezone, tz, "timezone", "must be a valid timezone"); err != nil {
		errs = append(errs, *err)
	}

	if len(errs) > 0 {
		return Preferences{}, errs
	}
	return Preferences{notifications: flags, language: lang, timezone: tz}, nil
}

// DefaultPreferences is what a freshly created user gets.
func DefaultPreferences() Preferences {
	p, err := NewPreferences(PreferencesParams{})
	if err != nil {
		panic(err)
	}
	return p
}

// Enabled reports whether the user receives notifications of kind k.
func (p Preferences) Enabled(k NotificationKind) bool {
	if k.Mandatory() {
		return true
	}
	return p.notifications[k]
}

// Notifications returns a copy of every flag.
func (p Preferences) Notifications() map[NotificationKind]bool {
	out := make(map[NotificationKind]bool, len(p.notifications))
	for k, v := range p.notifications {
		out[k] = v
	}
	return out
}

func (p Preferences) Language() string { return p.language }

func (p Preferences) Timezone() string { return p.timezone }

func (p Preferences) IsZero() bool { return p.notifications == nil }

func (p Preferences) Params() PreferencesParams {
	return PreferencesParams{Notifications: p.Notifications(), Language: p.language, Timezone: p.timezone}
}

// Diff lists changed notification kinds (as "notifications.<kind>"), then language and timezone.
func (p Preferences) Diff(other Preferences) []string {
	var changed []string
	for _, k := range NotificationKinds() {
		if p.Enabled(k) != other.Enabled(k) {
			changed = append(changed, "notifications."+string(k))
		}
	}
	if p.language != other.language {
		changed = append(changed, FieldLanguage)
	}
	if p.timezone != other.timezone {
		changed = append(changed, FieldTimezone)
	}
	return changed
}

func (p Preferences) Equals(other Preferences) bool { return len(p.Diff(other)) == 0 }
