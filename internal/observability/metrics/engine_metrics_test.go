package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyClaimFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: ClaimFailureReasonDeadlineExceeded,
		},
		{
			name: "not_found",
			err:  gorm.ErrRecordNotFound,
			want: ClaimFailureReasonNotFound,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: ClaimFailureReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: ClaimFailureReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: ClaimFailureReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: ClaimFailureReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyClaimFailure(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddConflictCheck(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newEngineMetrics(registry)

	metrics.AddConflictCheck("rejected")
	metrics.AddConflictCheck("rejected")

	got := testutil.ToFloat64(metrics.conflictChecks.WithLabelValues("rejected"))
	if got != 2 {
		t.Fatalf("expected conflict check count 2, got %v", got)
	}
}

func TestAddClaimFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newEngineMetrics(registry)

	metrics.AddClaimFailure(ClaimFailureReasonDBLockTimeout)

	got := testutil.ToFloat64(metrics.claimFailures.WithLabelValues(ClaimFailureReasonDBLockTimeout))
	if got != 1 {
		t.Fatalf("expected failure count 1, got %v", got)
	}
}
