package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/service"
	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
	"github.com/oksasatya/tutorhub-user-service/pkg/helpers"
)

// ReputationView is a scored reputation as returned to callers and cached in Redis.
type ReputationView struct {
	UserID      string               `json:"user_id"`
	Score       int                  `json:"score"`
	Tier        service.Tier         `json:"tier"`
	Factors     vo.ReputationFactors `json:"factors"`
	EvaluatedAt time.Time            `json:"evaluated_at"`
}

func reputationKey(userID string) string {
	return "user:reputation:" + userID
}

// EvaluateReputation scores the user with factors supplied by the sessions and
// reviews subsystems. The account age is always taken from the user itself.
func (s *Service) EvaluateReputation(ctx context.Context, id string, f vo.ReputationFactors) (view ReputationView, err error) {
	defer func() { s.Metrics.observe("evaluate_reputation", err) }()

	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return ReputationView{}, err
	}
	now := s.now()
	f = f.WithAccountAgeDays(u.AccountAgeDays(now))
	if err = f.Validate(); err != nil {
		return ReputationView{}, err
	}

	rep := u.Reputation(f)
	view = ReputationView{UserID: u.ID(), Score: rep.Score, Tier: rep.Tier, Factors: f, EvaluatedAt: now}

	if s.Redis != nil {
		if rErr := helpers.RedisSetJSON(ctx, s.Redis, reputationKey(u.ID()), view, s.ReputationTTL); rErr != nil {
			s.Logger.WithError(rErr).WithField("user_id", u.ID()).Warn("cache reputation failed")
		}
	}
	return view, nil
}

// CachedReputation returns the last evaluation if it is still cached. A Redis
// failure is logged and reported as a miss.
func (s *Service) CachedReputation(ctx context.Context, id string) (ReputationView, bool, error) {
	if s.Redis == nil {
		return ReputationView{}, false, nil
	}
	var view ReputationView
	ok, err := helpers.RedisGetJSON(ctx, s.Redis, reputationKey(id), &view)
	switch {
	case err != nil:
		s.Metrics.cacheLookup("error")
		s.Logger.WithError(err).WithField("user_id", id).Warn("read cached reputation failed")
		return ReputationView{}, false, nil
	case !ok:
		s.Metrics.cacheLookup("miss")
		return ReputationView{}, false, nil
	}
	s.Metrics.cacheLookup("hit")
	return view, true, nil
}

func (s *Service) forgetReputation(ctx context.Context, id string) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, reputationKey(id)); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"user_id": id}).Warn("drop cached reputation failed")
	}
}
