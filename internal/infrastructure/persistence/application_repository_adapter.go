package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const applicationColumns = `id, task_id, freelancer_id, proposed_budget, budget_type, cover_letter,
		estimated_duration, status, version, applied_at, responded_at, updated_at`

type ApplicationRepositoryAdapter struct {
	db *sqlx.DB
}

func NewApplicationRepositoryAdapter(db *sqlx.DB) *ApplicationRepositoryAdapter {
	return &ApplicationRepositoryAdapter{db: db}
}

func (r *ApplicationRepositoryAdapter) Create(ctx context.Context, a *entity.Application) error {
	query := `INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		a.ID, a.TaskID, a.FreelancerID, a.ProposedBudget, string(a.BudgetType), a.CoverLetter,
		a.EstimatedDuration, string(a.Status), a.Version, a.AppliedAt, a.RespondedAt, a.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "failed to create application")
	}
	return nil
}

func (r *ApplicationRepositoryAdapter) Update(ctx context.Context, a *entity.Application) error {
	query := `
		UPDATE applications SET status = $3, responded_at = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, a.ID, a.Version, string(a.Status), a.RespondedAt, a.UpdatedAt)
	if err := requireOneRow(res, err, "failed to update application"); err != nil {
		return err
	}
	a.Version++
	return nil
}

func (r *ApplicationRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Application, error) {
	var row applicationRow
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrApplicationNotFound, "failed to get application")
	}
	return row.toEntity(), nil
}

func (r *ApplicationRepositoryAdapter) FindByTaskID(ctx context.Context, taskID uuid.UUID) ([]*entity.Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications WHERE task_id = $1 ORDER BY applied_at DESC`, taskID)
}

func (r *ApplicationRepositoryAdapter) FindByFreelancerID(ctx context.Context, freelancerID uuid.UUID) ([]*entity.Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications WHERE freelancer_id = $1 ORDER BY applied_at DESC`, freelancerID)
}

func (r *ApplicationRepositoryAdapter) FindByTaskAndFreelancer(ctx context.Context, taskID, freelancerID uuid.UUID) (*entity.Application, error) {
	var row applicationRow
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE task_id = $1 AND freelancer_id = $2`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, taskID, freelancerID); err != nil {
		err = notFoundOr(err, apperror.ErrApplicationNotFound, "failed to get application")
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return row.toEntity(), nil
}

func (r *ApplicationRepositoryAdapter) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Application, error) {
	var rows []applicationRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbError(err, "failed to list applications")
	}
	result := make([]*entity.Application, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

type applicationRow struct {
	ID                uuid.UUID  `db:"id"`
	TaskID            uuid.UUID  `db:"task_id"`
	FreelancerID      uuid.UUID  `db:"freelancer_id"`
	ProposedBudget    int64      `db:"proposed_budget"`
	BudgetType        string     `db:"budget_type"`
	CoverLetter       string     `db:"cover_letter"`
	EstimatedDuration string     `db:"estimated_duration"`
	Status            string     `db:"status"`
	Version           int        `db:"version"`
	AppliedAt         time.Time  `db:"applied_at"`
	RespondedAt       *time.Time `db:"responded_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (r *applicationRow) toEntity() *entity.Application {
	return &entity.Application{
		ID:                r.ID,
		TaskID:            r.TaskID,
		FreelancerID:      r.FreelancerID,
		ProposedBudget:    r.ProposedBudget,
		BudgetType:        valueobject.BudgetType(r.BudgetType),
		CoverLetter:       r.CoverLetter,
		EstimatedDuration: r.EstimatedDuration,
		Status:            valueobject.ApplicationStatus(r.Status),
		Version:           r.Version,
		AppliedAt:         r.AppliedAt,
		RespondedAt:       r.RespondedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
