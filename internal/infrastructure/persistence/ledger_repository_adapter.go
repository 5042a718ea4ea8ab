package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
)

type LedgerRepositoryAdapter struct {
	db *sqlx.DB
}

func NewLedgerRepositoryAdapter(db *sqlx.DB) *LedgerRepositoryAdapter {
	return &LedgerRepositoryAdapter{db: db}
}

func (r *LedgerRepositoryAdapter) Append(ctx context.Context, e *entity.LedgerEntry) error {
	query := `INSERT INTO escrow_ledger (id, escrow_id, user_id, milestone_id, kind, amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		e.ID, e.EscrowID, e.UserID, e.MilestoneID, string(e.Kind), e.Amount, e.Currency, e.CreatedAt)
	if err != nil {
		return dbError(err, "failed to append ledger entry")
	}
	return nil
}

func (r *LedgerRepositoryAdapter) FindByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]*entity.LedgerEntry, error) {
	var rows []struct {
		ID          uuid.UUID  `db:"id"`
		EscrowID    uuid.UUID  `db:"escrow_id"`
		UserID      uuid.UUID  `db:"user_id"`
		MilestoneID *uuid.UUID `db:"milestone_id"`
		Kind        string     `db:"kind"`
		Amount      int64      `db:"amount"`
		Currency    string     `db:"currency"`
		CreatedAt   time.Time  `db:"created_at"`
	}
	query := `SELECT id, escrow_id, user_id, milestone_id, kind, amount, currency, created_at
		FROM escrow_ledger WHERE escrow_id = $1 ORDER BY created_at`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, escrowID); err != nil {
		return nil, dbError(err, "failed to list ledger entries")
	}
	result := make([]*entity.LedgerEntry, len(rows))
	for i, row := range rows {
		result[i] = &entity.LedgerEntry{
			ID:          row.ID,
			EscrowID:    row.EscrowID,
			UserID:      row.UserID,
			MilestoneID: row.MilestoneID,
			Kind:        entity.LedgerKind(row.Kind),
			Amount:      row.Amount,
			Currency:    row.Currency,
			CreatedAt:   row.CreatedAt,
		}
	}
	return result, nil
}
