package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type txKey struct{}

// queryer is the part of sqlx shared by *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// TxManager implements repository.Transactor on top of sqlx.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx runs fn in a transaction; nested calls reuse the outer one.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(mapDBError(err), apperror.ErrCodeDatabaseError, "commit transaction")
	}
	return nil
}

// conn returns the transaction bound to ctx or the pool.
func conn(ctx context.Context, db *sqlx.DB) queryer {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// mapDBError translates constraint violations into domain errors.
func mapDBError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return apperror.Wrap(err, apperror.ErrCodeConflict, "record already exists: "+pqErr.Constraint)
	case pqForeignKeyViolation:
		return apperror.Wrap(err, apperror.ErrCodeNotFound, "referenced record does not exist")
	case pqCheckViolation:
		return apperror.Wrap(err, apperror.ErrCodeValidation, "constraint violated: "+pqErr.Constraint)
	}
	return err
}

// dbError keeps domain errors from mapDBError and wraps the rest.
func dbError(err error, message string) error {
	mapped := mapDBError(err)
	var appErr *apperror.AppError
	if errors.As(mapped, &appErr) {
		return mapped
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}

// requireOneRow turns a zero-row versioned update into a stale-version conflict.
func requireOneRow(res sql.Result, err error, message string) error {
	if err != nil {
		return dbError(err, message)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err, message)
	}
	if n == 0 {
		return apperror.ErrStaleVersion
	}
	return nil
}

func notFoundOr(err error, notFound error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return dbError(err, message)
}
