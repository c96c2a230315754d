package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Detail: "Key (id)=(t1) already exists."})
	detail, ok := UniqueViolation(err)
	require.True(t, ok)
	require.Contains(t, detail, "t1")

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	require.False(t, ok)
	_, ok = UniqueViolation(errors.New("boom"))
	require.False(t, ok)
}

func TestNewRejectsBadDSN(t *testing.T) {
	_, err := New(context.Background(), "postgres://%zz", 0)
	require.ErrorContains(t, err, "parse config")
}
