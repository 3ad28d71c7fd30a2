package application

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
	"github.com/oksasatya/tutorhub-user-service/internal/domain/event"
	repo "github.com/oksasatya/tutorhub-user-service/internal/domain/repository"
)

const metricsNamespace = "tutorhub"

// Role transition outcomes.
const (
	OutcomeAllowed  = "allowed"
	OutcomeOverride = "override"
	OutcomeDenied   = "denied"
)

// Metrics holds the Prometheus collectors of the user service. A nil *Metrics is valid and records nothing.
type Metrics struct {
	OperationsTotal      *prometheus.CounterVec
	RoleTransitionsTotal *prometheus.CounterVec
	EventsPublishedTotal *prometheus.CounterVec
	PublishFailuresTotal prometheus.Counter
	ConflictRetriesTotal prometheus.Counter
	ReputationCacheTotal *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "users",
			Name:      "operations_total",
			Help:      "User operations by name and outcome.",
		}, []string{"operation", "outcome"}), // outcome: ok, validation, invalid_state, rule_violation, conflict, not_found, email_taken, error
		RoleTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "users",
			Name:      "role_transitions_total",
			Help:      "Role change decisions by outcome and denial reason.",
		}, []string{"outcome", "reason"}),
		EventsPublishedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events handed to the event bus, by type.",
		}, []string{"type"}),
		PublishFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Batches of domain events that could not be published after a successful save.",
		}),
		ConflictRetriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "users",
			Name:      "conflict_retries_total",
			Help:      "Optimistic-concurrency conflicts that triggered a reload and retry.",
		}),
		ReputationCacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "reputation",
			Name:      "cache_lookups_total",
			Help:      "Reputation cache lookups by result.",
		}, []string{"result"}), // result: hit, miss, error
	}
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, outcomeOf(err)).Inc()
}

func (m *Metrics) roleTransition(outcome string, reason domainerr.Reason) {
	if m == nil {
		return
	}
	m.RoleTransitionsTotal.WithLabelValues(outcome, string(reason)).Inc()
}

func (m *Metrics) published(events []event.Event) {
	if m == nil {
		return
	}
	for _, e := range events {
		m.EventsPublishedTotal.WithLabelValues(string(e.EventType())).Inc()
	}
}

func (m *Metrics) publishFailed() {
	if m != nil {
		m.PublishFailuresTotal.Inc()
	}
}

func (m *Metrics) conflictRetry() {
	if m != nil {
		m.ConflictRetriesTotal.Inc()
	}
}

func (m *Metrics) cacheLookup(result string) {
	if m != nil {
		m.ReputationCacheTotal.WithLabelValues(result).Inc()
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domainerr.ErrValidation):
		return "validation"
	case errors.Is(err, domainerr.ErrInvalidStateTransition):
		return "invalid_state"
	case errors.Is(err, domainerr.ErrBusinessRuleViolation):
		return "rule_violation"
	case errors.Is(err, domainerr.ErrConflict):
		return "conflict"
	case errors.Is(err, repo.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, repo.ErrEmailTaken):
		return "email_taken"
	}
	return "error"
}
