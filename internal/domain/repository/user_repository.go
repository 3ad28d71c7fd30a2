package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/entity"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserRepository persists user aggregates.
//
// Update must apply optimistic concurrency: the stored version has to equal
// u.Version(), otherwise a *domainerr.ConflictError is returned. Successful
// writes call u.MarkPersisted with the new version.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
}
