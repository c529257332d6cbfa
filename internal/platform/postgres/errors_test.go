package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/vigil/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil passes through", nil, nil},
		{"no rows becomes not found", sql.ErrNoRows, store.ErrNotFound},
		{
			"unique violation becomes duplicate",
			&pgconn.PgError{Code: "23505", ConstraintName: "push_tokens_value_key"},
			store.ErrDuplicate,
		},
		{
			"foreign key violation becomes invalid entity",
			&pgconn.PgError{Code: "23503"},
			store.ErrInvalidEntity,
		},
		{
			"not null violation becomes invalid entity",
			&pgconn.PgError{Code: "23502", ColumnName: "user_id"},
			store.ErrInvalidEntity,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.err)
			if tc.want == nil {
				assert.NoError(t, mapped)
				return
			}
			assert.ErrorIs(t, mapped, tc.want)
		})
	}
}

func TestMapErrorPassesUnknownThrough(t *testing.T) {
	cause := errors.New("connection reset")
	assert.Equal(t, cause, MapError(cause))
}

func TestMapErrorPreservesWrappedPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505"}
	wrapped := fmt.Errorf("insert failed: %w", pgErr)
	assert.ErrorIs(t, MapError(wrapped), store.ErrDuplicate)
}

type fakeResult struct {
	rows int64
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, nil }

func TestCheckRowsAffected(t *testing.T) {
	assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, "push token"))

	err := CheckRowsAffected(fakeResult{rows: 0}, "push token")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "push token")

	assert.ErrorIs(t, CheckRowsAffected(fakeResult{rows: 0}, ""), store.ErrNotFound)
	assert.Error(t, CheckRowsAffected(nil, "push token"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("unrelated")))
	assert.False(t, IsUniqueViolation(nil))
}
