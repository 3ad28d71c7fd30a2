package valueobject

import "strings"

// Email is a normalised (trimmed, lower-cased) e-mail address.
type Email struct {
	value string
}

func NewEmail(raw string) (Email, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if err := checkVar("email", v, "required,email,max=254", "must be a valid email"); err != nil {
		return Email{}, err
	}
	return Email{value: v}, nil
}

func (e Email) String() string { return e.value }

func (e Email) IsZero() bool { return e.value == "" }

func (e Email) Equals(other Email) bool { return e.value == other.value }
