package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const disputeColumns = `id, escrow_id, raised_by, reason, description, evidence, status, resolution, outcome,
		escrow_status_before, resolved_by, version, created_at, updated_at, resolved_at`

type DisputeRepositoryAdapter struct {
	db *sqlx.DB
}

func NewDisputeRepositoryAdapter(db *sqlx.DB) *DisputeRepositoryAdapter {
	return &DisputeRepositoryAdapter{db: db}
}

func (r *DisputeRepositoryAdapter) Create(ctx context.Context, d *entity.Dispute) error {
	query := `INSERT INTO disputes (` + disputeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		d.ID, d.EscrowID, d.RaisedBy, d.Reason, d.Description, pq.StringArray(d.Evidence), string(d.Status),
		d.Resolution, outcomeString(d.Outcome), string(d.EscrowStatusPrev), d.ResolvedBy, d.Version,
		d.CreatedAt, d.UpdatedAt, d.ResolvedAt,
	)
	if err != nil {
		return dbError(err, "failed to create dispute")
	}
	return nil
}

func (r *DisputeRepositoryAdapter) Update(ctx context.Context, d *entity.Dispute) error {
	query := `
		UPDATE disputes SET status = $3, resolution = $4, outcome = $5, resolved_by = $6, resolved_at = $7,
		updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		d.ID, d.Version, string(d.Status), d.Resolution, outcomeString(d.Outcome), d.ResolvedBy, d.ResolvedAt, d.UpdatedAt,
	)
	if err := requireOneRow(res, err, "failed to update dispute"); err != nil {
		return err
	}
	d.Version++
	return nil
}

func (r *DisputeRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	var row disputeRow
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrDisputeNotFound, "failed to get dispute")
	}
	return row.toEntity(), nil
}

func (r *DisputeRepositoryAdapter) FindByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]*entity.Dispute, error) {
	return r.list(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE escrow_id = $1 ORDER BY created_at DESC`, escrowID)
}

func (r *DisputeRepositoryAdapter) ListActive(ctx context.Context, limit, offset int) ([]*entity.Dispute, error) {
	return r.list(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE status <> 'resolved'
		ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *DisputeRepositoryAdapter) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Dispute, error) {
	var rows []disputeRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbError(err, "failed to list disputes")
	}
	result := make([]*entity.Dispute, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func outcomeString(s *valueobject.EscrowStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

type disputeRow struct {
	ID                 uuid.UUID      `db:"id"`
	EscrowID           uuid.UUID      `db:"escrow_id"`
	RaisedBy           uuid.UUID      `db:"raised_by"`
	Reason             string         `db:"reason"`
	Description        string         `db:"description"`
	Evidence           pq.StringArray `db:"evidence"`
	Status             string         `db:"status"`
	Resolution         *string        `db:"resolution"`
	Outcome            *string        `db:"outcome"`
	EscrowStatusBefore string         `db:"escrow_status_before"`
	ResolvedBy         *uuid.UUID     `db:"resolved_by"`
	Version            int            `db:"version"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
	ResolvedAt         *time.Time     `db:"resolved_at"`
}

func (r *disputeRow) toEntity() *entity.Dispute {
	d := &entity.Dispute{
		ID:               r.ID,
		EscrowID:         r.EscrowID,
		RaisedBy:         r.RaisedBy,
		Reason:           r.Reason,
		Description:      r.Description,
		Evidence:         []string(r.Evidence),
		Status:           valueobject.DisputeStatus(r.Status),
		Resolution:       r.Resolution,
		EscrowStatusPrev: valueobject.EscrowStatus(r.EscrowStatusBefore),
		ResolvedBy:       r.ResolvedBy,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		ResolvedAt:       r.ResolvedAt,
	}
	if r.Outcome != nil {
		o := valueobject.EscrowStatus(*r.Outcome)
		d.Outcome = &o
	}
	return d
}
