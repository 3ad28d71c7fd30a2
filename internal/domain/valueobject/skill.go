package valueobject

import (
	"strings"
	"unicode/utf8"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
)

// SkillCategory groups skills for completeness scoring and search.
type SkillCategory string

const (
	CategoryAcademic  SkillCategory = "academic"
	CategoryLanguage  SkillCategory = "language"
	CategoryTechnical SkillCategory = "technical"
	CategoryArts      SkillCategory = "arts"
	CategoryOther     SkillCategory = "other"
)

func (c SkillCategory) Valid() bool {
	switch c {
	case CategoryAcademic, CategoryLanguage, CategoryTechnical, CategoryArts, CategoryOther:
		return true
	}
	return false
}

// ExperienceLevel is the self-declared proficiency in a skill.
type ExperienceLevel string

const (
	LevelBeginner     ExperienceLevel = "beginner"
	LevelIntermediate ExperienceLevel = "intermediate"
	LevelAdvanced     ExperienceLevel = "advanced"
	LevelExpert       ExperienceLevel = "expert"
)

func (l ExperienceLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		return true
	}
	return false
}

const maxSkillNameLength = 60

// Skill is a (name, category, level) tuple. Two skills are the same skill when their
// names match case-insensitively.
type Skill struct {
	Name     string          `json:"name"`
	Category SkillCategory   `json:"category"`
	Level    ExperienceLevel `json:"level"`
}

func NewSkill(name string, category SkillCategory, level ExperienceLevel) (Skill, error) {
	s := Skill{Name: strings.TrimSpace(name), Category: category, Level: level}
	if err := s.Validate(); err != nil {
		return Skill{}, err
	}
	return s, nil
}

func (s Skill) Validate() error {
	if s.Name == "" || strings.TrimSpace(s.Name) != s.Name {
		return domainerr.NewValidationError("skills.name", "is required", s.Name)
	}
	if utf8.RuneCountInString(s.Name) > maxSkillNameLength {
		return domainerr.NewValidationError("skills.name", "must be at most 60 characters long", s.Name)
	}
	if !s.Category.Valid() {
		return domainerr.NewValidationError("skills.category", "must be one of: academic, language, technical, arts, other", s.Category)
	}
	if !s.Level.Valid() {
		return domainerr.NewValidationError("skills.level", "must be one of: beginner, intermediate, advanced, expert", s.Level)
	}
	return nil
}

// Key is the identity used for set membership.
func (s Skill) Key() string { return strings.ToLower(s.Name) }
