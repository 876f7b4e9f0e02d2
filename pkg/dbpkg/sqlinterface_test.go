package dbpkg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestUniqueViolation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		err            error
		wantConstraint string
		wantOK         bool
	}{
		{
			name:           "PQ",
			err:            &pq.Error{Code: "23505", Constraint: "users_pkey"},
			wantConstraint: "users_pkey",
			wantOK:         true,
		},
		{
			name:           "WrappedPGX",
			err:            fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}),
			wantConstraint: "users_email_key",
			wantOK:         true,
		},
		{
			name: "ForeignKeyViolation",
			err:  &pq.Error{Code: "23503", Constraint: "accounts_owner_fkey"},
		},
		{
			name: "Other",
			err:  errors.New("connection reset"),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			constraint, ok := UniqueViolation(tc.err)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.wantConstraint, constraint)
		})
	}
}
