package handlers

import (
	"time"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/entity"
	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

type profileView struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Bio         string     `json:"bio"`
	Skills      []vo.Skill `json:"skills"`
	DateOfBirth string     `json:"date_of_birth,omitempty"`
}

type preferencesView struct {
	Notifications map[vo.NotificationKind]bool `json:"notifications"`
	Language      string                       `json:"language"`
	Timezone      string                       `json:"timezone"`
}

type userView struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Role         vo.Role         `json:"role"`
	Status       vo.Status       `json:"status"`
	StatusReason string          `json:"status_reason,omitempty"`
	Profile      profileView     `json:"profile"`
	Preferences  preferencesView `json:"preferences"`
	Completeness int             `json:"completeness"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	LastLoginAt  *time.Time      `json:"last_login_at,omitempty"`
	Version      int64           `json:"version"`
}

func newUserView(u *entity.User) userView {
	p, prefs := u.Profile(), u.Preferences()
	v := userView{
		ID:           u.ID(),
		Email:        u.Email().String(),
		Role:         u.Role(),
		Status:       u.Status(),
		StatusReason: u.StatusReason(),
		Profile: profileView{
			FirstName: p.FirstName(),
			LastName:  p.LastName(),
			Bio:       p.Bio(),
			Skills:    p.Skills(),
		},
		Preferences: preferencesView{
			Notifications: prefs.Notifications(),
			Language:      prefs.Language(),
			Timezone:      prefs.Timezone(),
		},
		Completeness: u.Completeness(),
		CreatedAt:    u.CreatedAt(),
		UpdatedAt:    u.UpdatedAt(),
		Version:      u.Version(),
	}
	if dob, ok := p.DateOfBirth(); ok {
		v.Profile.DateOfBirth = dob.Format(time.DateOnly)
	}
	if at, ok := u.LastLoginAt(); ok {
		v.LastLoginAt = &at
	}
	return v
}
