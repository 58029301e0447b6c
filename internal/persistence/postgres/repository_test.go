package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"example.com/hundreddays/internal/domain"
)

func TestTranslateCheckInErrorUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "check_ins_one_per_day"}

	err := translateCheckInError(pgErr)
	require.ErrorIs(t, err, domain.ErrDuplicateCheckIn)

	wrapped := translateCheckInError(fmt.Errorf("exec insert: %w", pgErr))
	require.ErrorIs(t, wrapped, domain.ErrDuplicateCheckIn)
}

func TestTranslateCheckInErrorPassesThroughOtherErrors(t *testing.T) {
	otherPg := &pgconn.PgError{Code: "23503"}
	require.Equal(t, error(otherPg), translateCheckInError(otherPg))

	plain := errors.New("connection reset")
	require.Equal(t, plain, translateCheckInError(plain))
}
