package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/entity"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/repository"
	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

const uniqueViolation = "23505"

const selectUser = `
	SELECT id, email, first_name, last_name, bio, skills, date_of_birth, preferences,
	       role, status, status_reason, created_at, updated_at, last_login_at, version
	FROM users
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// preferencesDoc is the jsonb shape of the preferences column.
type preferencesDoc struct {
	Notifications map[vo.NotificationKind]bool `json:"notifications"`
	Language      string                       `json:"language"`
	Timezone      string                       `json:"timezone"`
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	s := u.Snapshot()
	skills, prefs, err := encodeDocs(s)
	if err != nil {
		return err
	}

	var version int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, first_name, last_name, bio, skills, date_of_birth, preferences,
		                   role, status, status_reason, created_at, updated_at, last_login_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)
		RETURNING version
	`, s.ID, s.Email, s.Profile.FirstName, s.Profile.LastName, s.Profile.Bio, skills, s.Profile.DateOfBirth, prefs,
		string(s.Role), string(s.Status), s.StatusReason, s.CreatedAt, s.UpdatedAt, s.LastLoginAt).Scan(&version)
	if err != nil {
		return mapWriteErr(err)
	}
	u.MarkPersisted(version)
	return nil
}

// GetByID reports ErrUserNotFound for ids that are not UUIDs.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrUserNotFound
	}
	return r.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	addr, err := vo.NewEmail(email)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}
	return r.getOne(ctx, selectUser+` WHERE email = $1`, addr.String())
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	s := u.Snapshot()
	skills, prefs, err := encodeDocs(s)
	if err != nil {
		return err
	}

	var version int64
	err = r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, bio = $5, skills = $6, date_of_birth = $7,
		    preferences = $8, role = $9, status = $10, status_reason = $11, updated_at = $12,
		    last_login_at = $13, version = version + 1
		WHERE id = $1 AND version = $14
		RETURNING version
	`, s.ID, s.Email, s.Profile.FirstName, s.Profile.LastName, s.Profile.Bio, skills, s.Profile.DateOfBirth,
		prefs, string(s.Role), string(s.Status), s.StatusReason, s.UpdatedAt, s.LastLoginAt, s.Version).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, s.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check user existence: %w", err)
		}
		if !exists {
			return repository.ErrUserNotFound
		}
		return domainerr.NewConflict("user", s.ID, s.Version)
	}
	if err != nil {
		return mapWriteErr(err)
	}
	u.MarkPersisted(version)
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*entity.User, error) {
	var (
		s              entity.UserSnapshot
		skills, prefs  []byte
		role, status   string
		dob, lastLogin *time.Time
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&s.ID, &s.Email, &s.Profile.FirstName, &s.Profile.LastName, &s.Profile.Bio, &skills, &dob, &prefs,
		&role, &status, &s.StatusReason, &s.CreatedAt, &s.UpdatedAt, &lastLogin, &s.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if err := json.Unmarshal(skills, &s.Profile.Skills); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}
	var doc preferencesDoc
	if err := json.Unmarshal(prefs, &doc); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	s.Preferences = vo.PreferencesParams{Notifications: doc.Notifications, Language: doc.Language, Timezone: doc.Timezone}
	s.Profile.DateOfBirth = dob
	s.LastLoginAt = lastLogin
	s.Role, s.Status = vo.Role(role), vo.Status(status)

	u, err := entity.Reconstitute(s)
	if err != nil {
		return nil, fmt.Errorf("reconstitute user %s: %w", s.ID, err)
	}
	return u, nil
}

func encodeDocs(s entity.UserSnapshot) (skills, prefs []byte, err error) {
	if s.Profile.Skills == nil {
		s.Profile.Skills = []vo.Skill{}
	}
	if skills, err = json.Marshal(s.Profile.Skills); err != nil {
		return nil, nil, fmt.Errorf("encode skills: %w", err)
	}
	doc := preferencesDoc{
		Notifications: s.Preferences.Notifications,
		Language:      s.Preferences.Language,
		Timezone:      s.Preferences.Timezone,
	}
	if prefs, err = json.Marshal(doc); err != nil {
		return nil, nil, fmt.Errorf("encode preferences: %w", err)
	}
	return skills, prefs, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "users_email_key" {
		return repository.ErrEmailTaken
	}
	return fmt.Errorf("write user: %w", err)
}

var _ repository.UserRepository = (*UserRepository)(nil)
