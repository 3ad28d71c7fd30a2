// Package service holds the stateless decision functions of the user domain.
// Every function here is total, deterministic and free of I/O.
package service

import (
	"strings"
	"unicode/utf8"

	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

// Completeness checklist weights.
const (
	WeightName             = 15
	WeightBio              = 15
	WeightSkills           = 25
	WeightDateOfBirth      = 15
	WeightCategoryCoverage = 30

	MinBioLength  = 20
	MinSkillCount = 3
)

// RequiredSkillCategories must each hold at least one skill for the coverage points.
func RequiredSkillCategories() []vo.SkillCategory {
	return []vo.SkillCategory{vo.CategoryAcademic, vo.CategoryLanguage, vo.CategoryTechnical}
}

// Completeness scores how filled-in a profile is, from 0 to 100. It returns the raw
// score only; eligibility thresholds belong to the rule engine.
func Completeness(p vo.Profile) int {
	score := 0
	if p.FirstName() != "" && p.LastName() != "" {
		score += WeightName
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.Bio())) >= MinBioLength {
		score += WeightBio
	}
	if p.SkillCount() >= MinSkillCount {
		score += WeightSkills
	}
	if p.HasDateOfBirth() {
		score += WeightDateOfBirth
	}
	if coversRequiredCategories(p.Skills()) {
		score += WeightCategoryCoverage
	}
	return clamp(score, 0, 100)
}

func coversRequiredCategories(skills []vo.Skill) bool {
	have := make(map[vo.SkillCategory]bool, len(skills))
	for _, s := range skills {
		have[s.Category] = true
	}
	for _, c := range RequiredSkillCategories() {
		if !have[c] {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
