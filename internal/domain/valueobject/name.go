package valueobject

import (
	"strings"
	"unicode/utf8"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
)

const maxNameLength = 100

// Name is a person's first and last name, both required.
type Name struct {
	first string
	last  string
}

func NewName(first, last string) (Name, error) {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)

	var errs domainerr.ValidationErrors
	if err := checkNamePart("first_name", first); err != nil {
		errs = append(errs, *err)
	}
	if err := checkNamePart("last_name", last); err != nil {
		errs = append(errs, *err)
	}
	if len(errs) > 0 {
		return Name{}, errs
	}
	return Name{first: first, last: last}, nil
}

func checkNamePart(field, v string) *domainerr.ValidationError {
	if v == "" {
		return domainerr.NewValidationError(field, "is required", v)
	}
	if utf8.RuneCountInString(v) > maxNameLength {
		return domainerr.NewValidationError(field, "must be at most 100 characters long", v)
	}
	return nil
}

func (n Name) First() string { return n.first }

func (n Name) Last() string { return n.last }

func (n Name) Full() string { return n.first + " " + n.last }

func (n Name) IsZero() bool { return n.first == "" && n.last == "" }
