package valueobject

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
)

const maxBioLength = 2000

var earliestDateOfBirth = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Profile field names, as reported in ProfileUpdated diffs.
const (
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldBio         = "bio"
	FieldSkills      = "skills"
	FieldDateOfBirth = "date_of_birth"
)

// ProfileParams is the raw, unvalidated shape of a profile.
type ProfileParams struct {
	FirstName   string
	LastName    string
	Bio         string
	Skills      []Skill
	DateOfBirth *time.Time
}

// Profile is immutable: every With* method returns a new value.
type Profile struct {
	name        Name
	bio         string
	skills      []Skill
	dateOfBirth *time.Time
}

func NewProfile(p ProfileParams) (Profile, error) {
	var errs domainerr.ValidationErrors

	name, err := NewName(p.FirstName, p.LastName)
	var nameErrs domainerr.ValidationErrors
	if errors.As(err, &nameErrs) {
		errs = append(errs, nameErrs...)
	}

	bio := strings.TrimSpace(p.Bio)
	if utf8.RuneCountInString(bio) > maxBioLength {
		errs = append(errs, *domainerr.NewValidationError(FieldBio, "must be at most 2000 characters long", nil))
	}

	skills := make([]Skill, 0, len(p.Skills))
	seen := make(map[string]struct{}, len(p.Skills))
	for _, raw := range p.Skills {
		s, err := NewSkill(raw.Name, raw.Category, raw.Level)
		if err != nil {
			var ve *domainerr.ValidationError
			if errors.As(err, &ve) {
				errs = append(errs, *ve)
			}
			continue
		}
		if _, dup := seen[s.Key()]; dup {
			errs = append(errs, *domainerr.NewValidationError(FieldSkills, "must contain unique skill names", s.Name))
			continue
		}
		seen[s.Key()] = struct{}{}
		skills = append(skills, s)
	}

	var dob *time.Time
	if p.DateOfBirth != nil {
		d := truncateToDate(*p.DateOfBirth)
		if d.Before(earliestDateOfBirth) {
			errs = append(errs, *domainerr.NewValidationError(FieldDateOfBirth, "must be on or after 1900-01-01", d.Format(time.DateOnly)))
		}
		dob = &d
	}

	if len(errs) > 0 {
		return Profile{}, errs
	}
	return Profile{name: name, bio: bio, skills: skills, dateOfBirth: dob}, nil
}

// MustProfile is NewProfile for fixtures; it panics on invalid input.
func MustProfile(p ProfileParams) Profile {
	prof, err := NewProfile(p)
	if err != nil {
		panic(err)
	}
	return prof
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (p Profile) Name() Name { return p.name }

func (p Profile) FirstName() string { return p.name.First() }

func (p Profile) LastName() string { return p.name.Last() }

func (p Profile) Bio() string { return p.bio }

func (p Profile) SkillCount() int { return len(p.skills) }

func (p Profile) HasDateOfBirth() bool { return p.dateOfBirth != nil }

// IsZero reports whether p is the zero value rather than a constructed profile.
func (p Profile) IsZero() bool { return p.name.IsZero() }

// Skills returns a copy of the skill set in insertion order.
func (p Profile) Skills() []Skill {
	out := make([]Skill, len(p.skills))
	copy(out, p.skills)
	return out
}

// DateOfBirth returns the date of birth, if present.
func (p Profile) DateOfBirth() (time.Time, bool) {
	if p.dateOfBirth == nil {
		return time.Time{}, false
	}
	return *p.dateOfBirth, true
}

// Age is the number of full years between the date of birth and now.
func (p Profile) Age(now time.Time) (int, bool) {
	if p.dateOfBirth == nil {
		return 0, false
	}
	dob := *p.dateOfBirth
	now = now.UTC()
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years, true
}

// Params returns the profile as raw params, suitable for persistence or modification.
func (p Profile) Params() ProfileParams {
	var dob *time.Time
	if p.dateOfBirth != nil {
		d := *p.dateOfBirth
		dob = &d
	}
	return ProfileParams{
		FirstName:   p.name.First(),
		LastName:    p.name.Last(),
		Bio:         p.bio,
		Skills:      p.Skills(),
		DateOfBirth: dob,
	}
}

// Validate re-checks every field; useful for profiles assembled outside NewProfile.
func (p Profile) Validate() error {
	_, err := NewProfile(p.Params())
	return err
}

func (p Profile) WithName(first, last string) (Profile, error) {
	params := p.Params()
	params.FirstName, params.LastName = first, last
	return NewProfile(params)
}

func (p Profile) WithBio(bio string) (Profile, error) {
	params := p.Params()
	params.Bio = bio
	return NewProfile(params)
}

// WithSkill adds a skill; a skill whose name is already present is rejected.
func (p Profile) WithSkill(s Skill) (Profile, error) {
	params := p.Params()
	params.Skills = append(params.Skills, s)
	return NewProfile(params)
}

// WithoutSkill removes the skill with the given name, if present.
func (p Profile) WithoutSkill(name string) Profile {
	key := strings.ToLower(strings.TrimSpace(name))
	out := p
	out.skills = make([]Skill, 0, len(p.skills))
	for _, s := range p.skills {
		if s.Key() != key {
			out.skills = append(out.skills, s)
		}
	}
	return out
}

func (p Profile) WithDateOfBirth(dob time.Time) (Profile, error) {
	params := p.Params()
	params.DateOfBirth = &dob
	return NewProfile(params)
}

// Diff lists the fields that differ between p and other, in a fixed order.
func (p Profile) Diff(other Profile) []string {
	var changed []string
	if p.name.First() != other.name.First() {
		changed = append(changed, FieldFirstName)
	}
	if p.name.Last() != other.name.Last() {
		changed = append(changed, FieldLastName)
	}
	if p.bio != other.bio {
		changed = append(changed, FieldBio)
	}
	if !sameSkills(p.skills, other.skills) {
		changed = append(changed, FieldSkills)
	}
	if !sameDate(p.dateOfBirth, other.dateOfBirth) {
		changed = append(changed, FieldDateOfBirth)
	}
	return changed
}

func (p Profile) Equals(other Profile) bool { return len(p.Diff(other)) == 0 }

func sameSkills(a, b []Skill) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := sortedSkills(a), sortedSkills(b)
	for i := range sa {
		if sa[i].Key() != sb[i].Key() || sa[i].Category != sb[i].Category || sa[i].Level != sb[i].Level {
			return false
		}
	}
	return true
}

func sortedSkills(in []Skill) []Skill {
	out := make([]Skill, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
