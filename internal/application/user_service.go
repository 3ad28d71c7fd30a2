package application

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/entity"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/event"
	repo "github.com/oksasatya/tutorhub-user-service/internal/domain/repository"
	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

const (
	defaultConflictRetries = 3
	defaultReputationTTL   = 15 * time.Minute
)

// Service runs user use cases: load, mutate the aggregate, save with a version
// check, then hand the drained events to the publisher.
type Service struct {
	Repo            repo.UserRepository
	Publisher       event.Publisher
	Redis           *redis.Client
	Logger          *logrus.Logger
	ES              *elasticsearch.Client
	ESUsersIndex    string
	Metrics         *Metrics
	ConflictRetries int
	ReputationTTL   time.Duration
	Clock           func() time.Time
}

func NewService(repo repo.UserRepository, publisher event.Publisher, rdb *redis.Client, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string, metrics *Metrics, conflictRetries int, reputationTTL time.Duration) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if conflictRetries < 0 {
		conflictRetries = defaultConflictRetries
	}
	if reputationTTL <= 0 {
		reputationTTL = defaultReputationTTL
	}
	return &Service{
		Repo:            repo,
		Publisher:       publisher,
		Redis:           rdb,
		Logger:          logger,
		ES:              es,
		ESUsersIndex:    esUsersIndex,
		Metrics:         metrics,
		ConflictRetries: conflictRetries,
		ReputationTTL:   reputationTTL,
		Clock:           func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	// Role is only set by the bootstrap seeder; public registration always creates students.
	Role vo.Role
}

// Register creates a user in PendingVerification.
func (s *Service) Register(ctx context.Context, in RegisterInput) (u *entity.User, err error) {
	defer func() { s.Metrics.observe("register", err) }()

	opts := []entity.Option{entity.WithClock(s.now)}
	if in.Role != "" {
		opts = append(opts, entity.WithRole(in.Role))
	}
	u, err = entity.Create(in.Email, in.FirstName, in.LastName, opts...)
	if err != nil {
		return nil, err
	}
	if existing, gErr := s.Repo.GetByEmail(ctx, u.Email().String()); gErr == nil && existing != nil {
		return nil, repo.ErrEmailTaken
	} else if gErr != nil && !errors.Is(gErr, repo.ErrUserNotFound) {
		return nil, gErr
	}
	if err = s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.afterSave(ctx, u)
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID(), "role": u.Role()}).Info("user registered")
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.User, error) {
	return s.Repo.GetByID(ctx, id)
}

// Activate handles the external verification signal.
func (s *Service) Activate(ctx context.Context, id string) (*entity.User, error) {
	return s.mutate(ctx, "activate", id, func(u *entity.User) error { return u.Activate() })
}

func (s *Service) Suspend(ctx context.Context, id, reason string) (*entity.User, error) {
	return s.mutate(ctx, "suspend", id, func(u *entity.User) error { return u.Suspend(reason) })
}

func (s *Service) Reinstate(ctx context.Context, id string) (*entity.User, error) {
	return s.mutate(ctx, "reinstate", id, func(u *entity.User) error { return u.Reinstate() })
}

func (s *Service) Deactivate(ctx context.Context, id, reason string) (*entity.User, error) {
	u, err := s.mutate(ctx, "deactivate", id, func(u *entity.User) error { return u.Deactivate(reason) })
	if err == nil {
		s.forgetReputation(ctx, id)
	}
	return u, err
}

type ProfileInput struct {
	FirstName   string
	LastName    string
	Bio         string
	Skills      []vo.Skill
	DateOfBirth *time.Time
}

// UpdateProfile replaces the whole profile.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*entity.User, error) {
	p, err := vo.NewProfile(vo.ProfileParams{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Bio:         in.Bio,
		Skills:      in.Skills,
		DateOfBirth: in.DateOfBirth,
	})
	if err != nil {
		s.Metrics.observe("update_profile", err)
		return nil, err
	}
	return s.mutate(ctx, "update_profile", id, func(u *entity.User) error { return u.UpdateProfile(p) })
}

func (s *Service) UpdatePreferences(ctx context.Context, id string, in vo.PreferencesParams) (*entity.User, error) {
	p, err := vo.NewPreferences(in)
	if err != nil {
		s.Metrics.observe("update_preferences", err)
		return nil, err
	}
	return s.mutate(ctx, "update_preferences", id, func(u *entity.User) error { return u.UpdatePreferences(p) })
}

// ChangeEmail relies on the repository for uniqueness.
func (s *Service) ChangeEmail(ctx context.Context, id, email string) (*entity.User, error) {
	return s.mutate(ctx, "change_email", id, func(u *entity.User) error { return u.ChangeEmail(email) })
}

type ChangeRoleInput struct {
	Target    vo.Role
	ActorID   string
	ActorRole vo.Role
	Factors   vo.ReputationFactors
}

// ChangeRole applies the role decision table. Non-administrative actors may only
// change their own role.
func (s *Service) ChangeRole(ctx context.Context, id string, in ChangeRoleInput) (*entity.User, error) {
	var from vo.Role
	u, err := s.mutate(ctx, "change_role", id, func(u *entity.User) error {
		from = u.Role()
		if !in.ActorRole.Administrative() && in.ActorID != u.ID() {
			return domainerr.NewBusinessRuleViolation(domainerr.ReasonUnauthorizedInitiator,
				"only administrators may change another user's role",
				map[string]interface{}{"actor_id": in.ActorID, "initiator": in.ActorRole, "to": in.Target})
		}
		return u.ChangeRole(in.Target, in.ActorRole, in.Factors)
	})

	fields := logrus.Fields{"user_id": id, "from": from, "to": in.Target, "initiator_role": in.ActorRole, "actor_id": in.ActorID}
	if err != nil {
		if reason, ok := domainerr.ReasonOf(err); ok {
			s.Metrics.roleTransition(OutcomeDenied, reason)
			s.Logger.WithFields(fields).WithField("reason", reason).Info("role change denied")
		}
		return nil, err
	}

	if from == vo.RoleStudent && in.Target == vo.RoleTutor && in.ActorRole.Administrative() {
		s.Metrics.roleTransition(OutcomeOverride, "")
		s.Logger.WithFields(fields).Warn("role override")
	} else {
		s.Metrics.roleTransition(OutcomeAllowed, "")
		s.Logger.WithFields(fields).Info("role changed")
	}
	return u, nil
}

func (s *Service) RecordLogin(ctx context.Context, id string, at time.Time) (*entity.User, error) {
	return s.mutate(ctx, "record_login", id, func(u *entity.User) error { return u.RecordLogin(at) })
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock()
}

// mutate loads the user, applies fn and saves. On a version conflict the whole
// cycle is repeated up to ConflictRetries times; fn must therefore be safe to re-run.
func (s *Service) mutate(ctx context.Context, op, id string, fn func(*entity.User) error) (*entity.User, error) {
	u, err := s.mutateWithRetry(ctx, op, id, fn)
	s.Metrics.observe(op, err)
	return u, err
}

func (s *Service) mutateWithRetry(ctx context.Context, op, id string, fn func(*entity.User) error) (*entity.User, error) {
	for attempt := 0; ; attempt++ {
		u, err := s.Repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(u); err != nil {
			return nil, err
		}
		if len(u.PendingEvents()) == 0 {
			return u, nil
		}

		err = s.Repo.Update(ctx, u)
		if err == nil {
			s.afterSave(ctx, u)
			return u, nil
		}
		if !errors.Is(err, domainerr.ErrConflict) || attempt >= s.ConflictRetries {
			return nil, err
		}
		s.Metrics.conflictRetry()
		s.Logger.WithFields(logrus.Fields{"user_id": id, "operation": op, "attempt": attempt + 1}).Debug("version conflict, retrying")
	}
}

// afterSave drains and publishes events. The state is already durable, so
// publish and index failures are logged and counted, not returned.
func (s *Service) afterSave(ctx context.Context, u *entity.User) {
	events := u.CommitEvents()
	if len(events) > 0 {
		if err := s.Publisher.Publish(ctx, events...); err != nil {
			s.Metrics.publishFailed()
			s.Logger.WithError(err).WithFields(logrus.Fields{"user_id": u.ID(), "events": len(events)}).Error("publish user events failed")
		} else {
			s.Metrics.published(events)
		}
	}
	_ = s.indexUser(ctx, u)
}
