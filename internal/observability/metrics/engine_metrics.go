package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ClaimFailureReasonDeadlineExceeded     = "deadline_exceeded"
	ClaimFailureReasonDBLockTimeout        = "db_lock_timeout"
	ClaimFailureReasonSerializationFailure = "serialization_failure"
	ClaimFailureReasonUniqueViolation      = "unique_violation"
	ClaimFailureReasonNotFound             = "not_found"
	ClaimFailureReasonUnknown              = "unknown"
)

// EngineMetrics captures rebate engine health signals: claim computation
// latency, failures by reason and lock contention.
type EngineMetrics struct {
	claimDuration  *prometheus.HistogramVec
	claimFailures  *prometheus.CounterVec
	lockWait       *prometheus.HistogramVec
	conflictChecks *prometheus.CounterVec
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

// Engine returns the singleton engine metrics registry.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(prometheus.DefaultRegisterer)
	})
	return engineMetrics
}

// ResetEngineMetricsForTest resets the engine metrics singleton for tests.
func ResetEngineMetricsForTest() {
	engineMetricsOnce = sync.Once{}
	engineMetrics = nil
}

func newEngineMetrics(registerer prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		claimDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_rebate_claim_duration_seconds",
			Help:    "Claim computation latency by rebate unit.",
			Buckets: prometheus.DefBuckets,
		}, []string{"rebate_unit"}),
		claimFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_rebate_claim_failures_total",
			Help: "Claim computation failures by reason.",
		}, []string{"reason"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_rebate_lock_wait_seconds",
			Help:    "Time spent waiting on submission and claim locks.",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 10},
		}, []string{"resource"}),
		conflictChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_rebate_conflict_checks_total",
			Help: "Agreement conflict checks by result.",
		}, []string{"result"}),
	}
	if registerer != nil {
		registerer.MustRegister(m.claimDuration, m.claimFailures, m.lockWait, m.conflictChecks)
	}
	return m
}

// ObserveClaimDuration records one claim computation.
func (m *EngineMetrics) ObserveClaimDuration(rebateUnit string, seconds float64) {
	if m == nil {
		return
	}
	m.claimDuration.WithLabelValues(normalizeLabel(rebateUnit)).Observe(seconds)
}

// AddClaimFailure counts one failed claim computation.
func (m *EngineMetrics) AddClaimFailure(reason string) {
	if m == nil {
		return
	}
	m.claimFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveLockWait records lock acquisition latency per resource.
func (m *EngineMetrics) ObserveLockWait(resource string, seconds float64) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(normalizeLabel(resource)).Observe(seconds)
}

// AddConflictCheck counts one conflict check by result (pass / rejected).
func (m *EngineMetrics) AddConflictCheck(result string) {
	if m == nil {
		return
	}
	m.conflictChecks.WithLabelValues(normalizeLabel(result)).Inc()
}

// ClassifyClaimFailure maps an error to a low-cardinality failure reason.
func ClassifyClaimFailure(err error) string {
	if err == nil {
		return ClaimFailureReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClaimFailureReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ClaimFailureReasonNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ClaimFailureReasonUniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return ClaimFailureReasonDBLockTimeout
		case "40001":
			return ClaimFailureReasonSerializationFailure
		case "23505":
			return ClaimFailureReasonUniqueViolation
		}
	}

	return ClaimFailureReasonUnknown
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
