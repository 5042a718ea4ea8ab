package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const milestoneColumns = `id, escrow_id, position, title, description, amount, due_date, status,
		deliverables, submissions, feedback, version, approved_at, created_at, updated_at`

type MilestoneRepositoryAdapter struct {
	db *sqlx.DB
}

func NewMilestoneRepositoryAdapter(db *sqlx.DB) *MilestoneRepositoryAdapter {
	return &MilestoneRepositoryAdapter{db: db}
}

func (r *MilestoneRepositoryAdapter) CreateBatch(ctx context.Context, milestones []*entity.Milestone) error {
	bi := newBatchInserter(conn(ctx, r.db), `INSERT INTO escrow_milestones (`+milestoneColumns+`)`, 15, 50)
	for _, m := range milestones {
		submissions, err := json.Marshal(m.Submissions)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeInternal, "failed to encode submissions")
		}
		if err := bi.Add(ctx,
			m.ID, m.EscrowID, m.Position, m.Title, m.Description, m.Amount, m.DueDate, string(m.Status),
			pq.StringArray(m.Deliverables), submissions, m.Feedback, m.Version, m.ApprovedAt, m.CreatedAt, m.UpdatedAt,
		); err != nil {
			return dbError(err, "failed to create milestones")
		}
	}
	if err := bi.Flush(ctx); err != nil {
		return dbError(err, "failed to create milestones")
	}
	return nil
}

func (r *MilestoneRepositoryAdapter) Update(ctx context.Context, m *entity.Milestone) error {
	submissions, err := json.Marshal(m.Submissions)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "failed to encode submissions")
	}
	query := `
		UPDATE escrow_milestones SET status = $3, submissions = $4, feedback = $5, approved_at = $6,
		updated_at = $7, version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		m.ID, m.Version, string(m.Status), submissions, m.Feedback, m.ApprovedAt, m.UpdatedAt,
	)
	if err := requireOneRow(res, err, "failed to update milestone"); err != nil {
		return err
	}
	m.Version++
	return nil
}

func (r *MilestoneRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Milestone, error) {
	var row milestoneRow
	query := `SELECT ` + milestoneColumns + ` FROM escrow_milestones WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrMilestoneNotFound, "failed to get milestone")
	}
	return row.toEntity()
}

func (r *MilestoneRepositoryAdapter) FindByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]*entity.Milestone, error) {
	var rows []milestoneRow
	query := `SELECT ` + milestoneColumns + ` FROM escrow_milestones WHERE escrow_id = $1 ORDER BY position`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, escrowID); err != nil {
		return nil, dbError(err, "failed to list milestones")
	}
	result := make([]*entity.Milestone, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, nil
}

type milestoneRow struct {
	ID           uuid.UUID      `db:"id"`
	EscrowID     uuid.UUID      `db:"escrow_id"`
	Position     int            `db:"position"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Amount       int64          `db:"amount"`
	DueDate      *time.Time     `db:"due_date"`
	Status       string         `db:"status"`
	Deliverables pq.StringArray `db:"deliverables"`
	Submissions  []byte         `db:"submissions"`
	Feedback     *string        `db:"feedback"`
	Version      int            `db:"version"`
	ApprovedAt   *time.Time     `db:"approved_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *milestoneRow) toEntity() (*entity.Milestone, error) {
	var submissions []entity.Submission
	if len(r.Submissions) > 0 {
		if err := json.Unmarshal(r.Submissions, &submissions); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "corrupt milestone submissions")
		}
	}
	return &entity.Milestone{
		ID:           r.ID,
		EscrowID:     r.EscrowID,
		Position:     r.Position,
		Title:        r.Title,
		Description:  r.Description,
		Amount:       r.Amount,
		DueDate:      r.DueDate,
		Status:       valueobject.MilestoneStatus(r.Status),
		Deliverables: []string(r.Deliverables),
		Submissions:  submissions,
		Feedback:     r.Feedback,
		Version:      r.Version,
		ApprovedAt:   r.ApprovedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}
