package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/entity"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/event"
	repo "github.com/oksasatya/tutorhub-user-service/internal/domain/repository"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/service"
	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
	"github.com/oksasatya/tutorhub-user-service/internal/infrastructure/memory"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, events ...event.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc     *Service
	repo    *memory.UserRepository
	pub     *mockPublisher
	metrics *Metrics
	clock   *fakeClock
	logs    *logtest.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC)}
	r := memory.NewUserRepository(entity.WithClock(clock.Now))
	pub := &mockPublisher{}
	metrics := NewMetrics(prometheus.NewRegistry())
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	svc := NewService(r, pub, nil, logger, nil, "", metrics, 3, time.Minute)
	svc.Clock = clock.Now
	return &fixture{svc: svc, repo: r, pub: pub, metrics: metrics, clock: clock, logs: hook}
}

func (f *fixture) expectPublish(types ...event.Type) *mock.Call {
	return f.pub.On("Publish", mock.Anything, mock.MatchedBy(func(events []event.Event) bool {
		if len(events) != len(types) {
			return false
		}
		for i, e := range events {
			if e.EventType() != types[i] {
				return false
			}
		}
		return true
	})).Return(nil).Once()
}

func (f *fixture) activeUser(t *testing.T) *entity.User {
	t.Helper()
	f.expectPublish(event.TypeUserCreated)
	f.expectPublish(event.TypeUserActivated)
	u, err := f.svc.Register(context.Background(), RegisterInput{Email: "jo@lee.dev", FirstName: "Jo", LastName: "Lee"})
	require.NoError(t, err)
	u, err = f.svc.Activate(context.Background(), u.ID())
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expectPublish(event.TypeUserCreated)

	u, err := f.svc.Register(ctx, RegisterInput{Email: "Jo@Lee.dev", FirstName: "Jo", LastName: "Lee"})
	require.NoError(t, err)
	assert.Equal(t, vo.StatusPendingVerification, u.Status())
	assert.Equal(t, int64(1), u.Version())
	assert.Empty(t, u.PendingEvents())

	_, err = f.svc.Register(ctx, RegisterInput{Email: "jo@lee.dev", FirstName: "Other", LastName: "Person"})
	assert.ErrorIs(t, err, repo.ErrEmailTaken)

	_, err = f.svc.Register(ctx, RegisterInput{Email: "bad", FirstName: "Jo", LastName: "Lee"})
	assert.ErrorIs(t, err, domainerr.ErrValidation)

	f.pub.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("register", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("register", "email_taken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("register", "validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsPublishedTotal.WithLabelValues(string(event.TypeUserCreated))))
}

func TestLifecycleThroughService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)

	f.expectPublish(event.TypeUserDeactivated)
	u, err := f.svc.Suspend(ctx, u.ID(), "chargeback")
	require.NoError(t, err)
	assert.Equal(t, vo.StatusSuspended, u.Status())

	f.expectPublish(event.TypeUserActivated)
	_, err = f.svc.Reinstate(ctx, u.ID())
	require.NoError(t, err)

	f.expectPublish(event.TypeUserDeactivated)
	_, err = f.svc.Deactivate(ctx, u.ID(), "user request")
	require.NoError(t, err)

	_, err = f.svc.Activate(ctx, u.ID())
	assert.ErrorIs(t, err, domainerr.ErrInvalidStateTransition)
	_, err = f.svc.Activate(ctx, "missing")
	assert.ErrorIs(t, err, repo.ErrUserNotFound)

	stored, err := f.svc.Get(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusDeactivated, stored.Status())
	assert.Equal(t, int64(5), stored.Version())

	f.pub.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("activate", "invalid_state")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("activate", "not_found")))
}

func TestNoOpMutationIsNotSaved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)

	got, err := f.svc.UpdateProfile(ctx, u.ID(), ProfileInput{FirstName: "Jo", LastName: "Lee"})
	require.NoError(t, err)
	assert.Equal(t, u.Version(), got.Version())

	_, err = f.svc.UpdateProfile(ctx, u.ID(), ProfileInput{FirstName: "", LastName: "Lee"})
	assert.ErrorIs(t, err, domainerr.ErrValidation)

	f.pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestUpdateProfileAndPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)

	f.expectPublish(event.TypeProfileUpdated)
	u, err := f.svc.UpdateProfile(ctx, u.ID(), ProfileInput{
		FirstName: "Jo",
		LastName:  "Lee",
		Bio:       "Chemistry tutor with ten years of experience",
		Skills: []vo.Skill{
			{Name: "Chemistry", Category: vo.CategoryAcademic, Level: vo.LevelExpert},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, u.Completeness())

	f.expectPublish(event.TypePreferencesChanged)
	u, err = f.svc.UpdatePreferences(ctx, u.ID(), vo.PreferencesParams{
		Notifications: map[vo.NotificationKind]bool{vo.NotifyLoginAlerts: false, vo.NotifyReviews: false},
		Language:      "fr",
		Timezone:      "Europe/Paris",
	})
	require.NoError(t, err)
	assert.True(t, u.Preferences().Enabled(vo.NotifyLoginAlerts))
	assert.False(t, u.Preferences().Enabled(vo.NotifyReviews))

	_, err = f.svc.UpdatePreferences(ctx, u.ID(), vo.PreferencesParams{Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, domainerr.ErrValidation)
	f.pub.AssertExpectations(t)
}

func TestChangeEmailUniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)

	f.expectPublish(event.TypeUserCreated)
	_, err := f.svc.Register(ctx, RegisterInput{Email: "taken@lee.dev", FirstName: "Al", LastName: "Bo"})
	require.NoError(t, err)

	_, err = f.svc.ChangeEmail(ctx, u.ID(), "taken@lee.dev")
	assert.ErrorIs(t, err, repo.ErrEmailTaken)

	f.expectPublish(event.TypeEmailChanged)
	u, err = f.svc.ChangeEmail(ctx, u.ID(), "jo@tutorhub.dev")
	require.NoError(t, err)
	assert.Equal(t, "jo@tutorhub.dev", u.Email().String())
	f.pub.AssertExpectations(t)
}

func TestChangeRoleOverrideIsAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)

	f.expectPublish(event.TypeRoleChanged)
	u, err := f.svc.ChangeRole(ctx, u.ID(), ChangeRoleInput{Target: vo.RoleTutor, ActorID: "admin-1", ActorRole: vo.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, vo.RoleTutor, u.Role())

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RoleTransitionsTotal.WithLabelValues(OutcomeOverride, "")))
	var override *logrus.Entry
	for _, e := range f.logs.AllEntries() {
		if e.Message == "role override" {
			override = e
		}
	}
	require.NotNil(t, override)
	assert.Equal(t, "admin-1", override.Data["actor_id"])
	assert.Equal(t, vo.RoleAdmin, override.Data["initiator_role"])
	f.pub.AssertExpectations(t)
}

func TestChangeRoleSelfService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)

	_, err := f.svc.ChangeRole(ctx, u.ID(), ChangeRoleInput{Target: vo.RoleTutor, ActorID: u.ID(), ActorRole: vo.RoleStudent})
	reason, ok := domainerr.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.ReasonInsufficientProfileCompleteness, reason)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RoleTransitionsTotal.WithLabelValues(OutcomeDenied, string(reason))))

	dob := time.Date(1995, time.July, 1, 0, 0, 0, 0, time.UTC)
	f.expectPublish(event.TypeProfileUpdated)
	_, err = f.svc.UpdateProfile(ctx, u.ID(), ProfileInput{
		FirstName: "Jo",
		LastName:  "Lee",
		Bio:       "Physics, French and Python for beginners",
		Skills: []vo.Skill{
			{Name: "Physics", Category: vo.CategoryAcademic, Level: vo.LevelAdvanced},
			{Name: "French", Category: vo.CategoryLanguage, Level: vo.LevelExpert},
			{Name: "Python", Category: vo.CategoryTechnical, Level: vo.LevelAdvanced},
		},
		DateOfBirth: &dob,
	})
	require.NoError(t, err)

	f.clock.Advance(30 * 24 * time.Hour)
	f.expectPublish(event.TypeRoleChanged)
	u, err = f.svc.ChangeRole(ctx, u.ID(), ChangeRoleInput{Target: vo.RoleTutor, ActorID: u.ID(), ActorRole: vo.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, vo.RoleTutor, u.Role())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RoleTransitionsTotal.WithLabelValues(OutcomeAllowed, "")))
	f.pub.AssertExpectations(t)
}

func TestPublishFailureDoesNotFailTheOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)

	f.pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	u, err := f.svc.RecordLogin(ctx, u.ID(), f.clock.Now())
	require.NoError(t, err)
	_, ok := u.LastLoginAt()
	assert.True(t, ok)
	assert.Empty(t, u.PendingEvents())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PublishFailuresTotal))

	stored, err := f.svc.Get(ctx, u.ID())
	require.NoError(t, err)
	_, ok = stored.LastLoginAt()
	assert.True(t, ok)
}

// racingRepo lets another writer win the first Update of every user.
type racingRepo struct {
	*memory.UserRepository
	raced map[string]bool
	races int
}

func (r *racingRepo) Update(ctx context.Context, u *entity.User) error {
	if r.races > 0 && !r.raced[u.ID()] {
		r.raced[u.ID()] = true
		r.races--
		other, err := r.UserRepository.GetByID(ctx, u.ID())
		if err != nil {
			return err
		}
		if err := other.RecordLogin(time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)); err != nil {
			return err
		}
		if err := r.UserRepository.Update(ctx, other); err != nil {
			return err
		}
	}
	return r.UserRepository.Update(ctx, u)
}

func TestConflictIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)

	racing := &racingRepo{UserRepository: f.repo, raced: map[string]bool{}, races: 1}
	f.svc.Repo = racing

	f.expectPublish(event.TypeUserDeactivated)
	got, err := f.svc.Suspend(ctx, u.ID(), "fraud review")
	require.NoError(t, err)
	assert.Equal(t, vo.StatusSuspended, got.Status())
	_, hasLogin := got.LastLoginAt()
	assert.True(t, hasLogin, "retry must re-apply on the fresh state")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ConflictRetriesTotal))
	f.pub.AssertExpectations(t)
}

type alwaysConflictRepo struct{ *memory.UserRepository }

func (r alwaysConflictRepo) Update(_ context.Context, u *entity.User) error {
	return domainerr.NewConflict("user", u.ID(), u.Version())
}

func TestConflictRetriesAreBounded(t *testing.T) {
	f := newFixture(t)
	u := f.activeUser(t)
	f.svc.Repo = alwaysConflictRepo{f.repo}
	f.svc.ConflictRetries = 2

	_, err := f.svc.Suspend(context.Background(), u.ID(), "fraud review")
	require.ErrorIs(t, err, domainerr.ErrConflict)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ConflictRetriesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("suspend", "conflict")))
}

func TestEvaluateReputation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)
	f.clock.Advance(365 * 24 * time.Hour)

	view, err := f.svc.EvaluateReputation(ctx, u.ID(), vo.ReputationFactors{
		CompletedSessions: 50,
		CancelledSessions: 5,
		AverageRating:     4.8,
		AccountAgeDays:    -3,
	})
	require.NoError(t, err)
	assert.Equal(t, 94, view.Score)
	assert.Equal(t, service.TierPlatinum, view.Tier)
	assert.Equal(t, 365, view.Factors.AccountAgeDays)

	_, err = f.svc.EvaluateReputation(ctx, u.ID(), vo.ReputationFactors{AverageRating: 7})
	assert.ErrorIs(t, err, domainerr.ErrValidation)

	_, found, err := f.svc.CachedReputation(ctx, u.ID())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReputationCacheFailuresAreBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer func() { _ = rdb.Close() }()
	f.svc.Redis = rdb

	view, err := f.svc.EvaluateReputation(ctx, u.ID(), vo.ReputationFactors{AverageRating: 2.5})
	require.NoError(t, err)
	assert.Equal(t, 50, view.Score)

	_, found, err := f.svc.CachedReputation(ctx, u.ID())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "read cached reputation failed", f.logs.LastEntry().Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReputationCacheTotal.WithLabelValues("error")))
	assert.Equal(t, "user:reputation:"+u.ID(), reputationKey(u.ID()))
}

type fakeES struct {
	mu      sync.Mutex
	indexed map[string]UserDocument
	queries []string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasPrefix(r.URL.Path, "/users/_doc/"):
		var doc UserDocument
		_ = json.Unmarshal(body, &doc)
		f.indexed[strings.TrimPrefix(r.URL.Path, "/users/_doc/")] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.URL.Path == "/users/_search":
		f.queries = append(f.queries, string(body))
		hits := make([]map[string]any, 0, len(f.indexed))
		for id, doc := range f.indexed {
			hits = append(hits, map[string]any{"_id": id, "_source": doc})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func TestIndexAndSearch(t *testing.T) {
	fake := &fakeES{indexed: map[string]UserDocument{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	f := newFixture(t)
	f.svc.ES = es
	f.svc.ESUsersIndex = "users"
	u := f.activeUser(t)

	fake.mu.Lock()
	doc, ok := fake.indexed[u.ID()]
	fake.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "jo@lee.dev", doc.Email)
	assert.Equal(t, "Jo Lee", doc.Name)
	assert.Equal(t, string(vo.StatusActive), doc.Status)

	docs, err := f.svc.SearchUsers(context.Background(), "jo", 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, u.ID(), docs[0].ID)
	assert.Contains(t, fake.queries[0], `"multi_match"`)
	assert.Contains(t, fake.queries[0], `"size":10`)
}

func TestSearchWithoutElasticsearch(t *testing.T) {
	f := newFixture(t)
	docs, err := f.svc.SearchUsers(context.Background(), "jo", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestReputationCacheRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	f.svc.Redis = rdb

	u := f.activeUser(t)
	key := reputationKey(u.ID())

	_, found, err := f.svc.CachedReputation(ctx, u.ID())
	require.NoError(t, err)
	assert.False(t, found)

	view, err := f.svc.EvaluateReputation(ctx, u.ID(), vo.ReputationFactors{CompletedSessions: 10, AverageRating: 4})
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	cached, found, err := f.svc.CachedReputation(ctx, u.ID())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, view.Score, cached.Score)
	assert.Equal(t, view.Tier, cached.Tier)
	assert.Equal(t, view.Factors, cached.Factors)
	assert.True(t, view.EvaluatedAt.Equal(cached.EvaluatedAt))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReputationCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReputationCacheTotal.WithLabelValues("miss")))

	mr.FastForward(2 * time.Minute)
	_, found, err = f.svc.CachedReputation(ctx, u.ID())
	require.NoError(t, err)
	assert.False(t, found)

	_, err = f.svc.EvaluateReputation(ctx, u.ID(), vo.ReputationFactors{AverageRating: 4})
	require.NoError(t, err)
	require.True(t, mr.Exists(key))

	f.expectPublish(event.TypeUserDeactivated)
	_, err = f.svc.Deactivate(ctx, u.ID(), "closed by user")
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
	f.pub.AssertExpectations(t)
}

func TestOnlyAdministratorsChangeAnotherUsersRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.activeUser(t)

	f.expectPublish(event.TypeRoleChanged)
	_, err := f.svc.ChangeRole(ctx, u.ID(), ChangeRoleInput{Target: vo.RoleTutor, ActorID: "admin-1", ActorRole: vo.RoleAdmin})
	require.NoError(t, err)

	for _, role := range []vo.Role{vo.RoleStudent, vo.RoleTutor} {
		_, err = f.svc.ChangeRole(ctx, u.ID(), ChangeRoleInput{Target: vo.RoleStudent, ActorID: "someone-else", ActorRole: role})
		require.ErrorIs(t, err, domainerr.ErrBusinessRuleViolation, role)
		reason, _ := domainerr.ReasonOf(err)
		assert.Equal(t, domainerr.ReasonUnauthorizedInitiator, reason)
	}

	got, err := f.svc.Get(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.RoleTutor, got.Role())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.RoleTransitionsTotal.WithLabelValues(OutcomeDenied, string(domainerr.ReasonUnauthorizedInitiator))))

	f.expectPublish(event.TypeRoleChanged)
	got, err = f.svc.ChangeRole(ctx, u.ID(), ChangeRoleInput{Target: vo.RoleStudent, ActorID: u.ID(), ActorRole: vo.RoleTutor})
	require.NoError(t, err)
	assert.Equal(t, vo.RoleStudent, got.Role())
	f.pub.AssertExpectations(t)
}
