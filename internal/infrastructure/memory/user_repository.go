// Package memory is an in-process UserRepository for tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/entity"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/repository"
	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

// UserRepository stores snapshots, so callers never share aggregate pointers
// with the store.
type UserRepository struct {
	mu      sync.Mutex
	byID    map[string]entity.UserSnapshot
	byEmail map[string]string
	opts    []entity.Option
}

// NewUserRepository returns an empty store. opts are applied to every loaded aggregate.
func NewUserRepository(opts ...entity.Option) *UserRepository {
	return &UserRepository{
		byID:    make(map[string]entity.UserSnapshot),
		byEmail: make(map[string]string),
		opts:    opts,
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := u.Snapshot()
	if _, ok := r.byID[s.ID]; ok {
		return domainerr.NewConflict("user", s.ID, s.Version)
	}
	if _, ok := r.byEmail[s.Email]; ok {
		return repository.ErrEmailTaken
	}
	s.Version = 1
	r.byID[s.ID] = s
	r.byEmail[s.Email] = s.ID
	u.MarkPersisted(s.Version)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	s, ok := r.byID[id]
	r.mu.Unlock()
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return entity.Reconstitute(s, r.opts...)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	addr, err := vo.NewEmail(email)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}
	r.mu.Lock()
	id, ok := r.byEmail[addr.String()]
	r.mu.Unlock()
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := u.Snapshot()
	stored, ok := r.byID[s.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if stored.Version != s.Version {
		return domainerr.NewConflict("user", s.ID, s.Version)
	}
	if s.Email != stored.Email {
		if owner, taken := r.byEmail[s.Email]; taken && owner != s.ID {
			return repository.ErrEmailTaken
		}
		delete(r.byEmail, stored.Email)
		r.byEmail[s.Email] = s.ID
	}
	s.Version++
	r.byID[s.ID] = s
	u.MarkPersisted(s.Version)
	return nil
}

// Len reports the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

var _ repository.UserRepository = (*UserRepository)(nil)
