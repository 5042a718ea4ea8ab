package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type fakeResult struct{ rows int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, nil }

func TestMapDBError(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: pqUniqueViolation, Constraint: "applications_task_freelancer_key"})
	assert.True(t, apperror.IsConflict(dbError(unique, "insert application")))

	fk := &pq.Error{Code: pqForeignKeyViolation}
	assert.True(t, apperror.IsNotFound(dbError(fk, "insert escrow")))

	check := &pq.Error{Code: pqCheckViolation, Constraint: "escrows_amount_check"}
	assert.True(t, apperror.IsValidation(dbError(check, "insert escrow")))

	other := errors.New("connection refused")
	err := dbError(other, "select")
	assert.Equal(t, apperror.ErrCodeDatabaseError, apperror.CodeOf(err))
	assert.ErrorIs(t, err, other)
}

func TestRequireOneRow(t *testing.T) {
	assert.NoError(t, requireOneRow(fakeResult{rows: 1}, nil, "update"))
	assert.ErrorIs(t, requireOneRow(fakeResult{rows: 0}, nil, "update"), apperror.ErrStaleVersion)
	assert.Equal(t, apperror.ErrCodeDatabaseError,
		apperror.CodeOf(requireOneRow(nil, errors.New("boom"), "update")))
}
