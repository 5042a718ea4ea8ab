package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const taskColumns = `id, client_id, title, description, budget, budget_type, currency, status, version, created_at, updated_at`

type TaskRepositoryAdapter struct {
	db *sqlx.DB
}

func NewTaskRepositoryAdapter(db *sqlx.DB) *TaskRepositoryAdapter {
	return &TaskRepositoryAdapter{db: db}
}

func (r *TaskRepositoryAdapter) Create(ctx context.Context, t *entity.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		t.ID, t.ClientID, t.Title, t.Description, t.Budget, string(t.BudgetType), t.Currency,
		string(t.Status), t.Version, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "failed to create task")
	}
	return nil
}

func (r *TaskRepositoryAdapter) Update(ctx context.Context, t *entity.Task) error {
	query := `
		UPDATE tasks SET title = $3, description = $4, status = $5, updated_at = $6, version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, t.ID, t.Version, t.Title, t.Description, string(t.Status), t.UpdatedAt)
	if err := requireOneRow(res, err, "failed to update task"); err != nil {
		return err
	}
	t.Version++
	return nil
}

func (r *TaskRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	var row taskRow
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrTaskNotFound, "failed to get task")
	}
	return row.toEntity(), nil
}

func (r *TaskRepositoryAdapter) List(ctx context.Context, filter repository.TaskFilter) ([]*entity.Task, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := conn(ctx, r.db)
	var total int
	if err := q.GetContext(ctx, &total, `SELECT COUNT(*) FROM tasks`+clause, args...); err != nil {
		return nil, 0, dbError(err, "failed to count tasks")
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tasks%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		taskColumns, clause, len(args)-1, len(args))
	var rows []taskRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, dbError(err, "failed to list tasks")
	}
	tasks := make([]*entity.Task, len(rows))
	for i := range rows {
		tasks[i] = rows[i].toEntity()
	}
	return tasks, total, nil
}

type taskRow struct {
	ID          uuid.UUID `db:"id"`
	ClientID    uuid.UUID `db:"client_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Budget      int64     `db:"budget"`
	BudgetType  string    `db:"budget_type"`
	Currency    string    `db:"currency"`
	Status      string    `db:"status"`
	Version     int       `db:"version"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *taskRow) toEntity() *entity.Task {
	return &entity.Task{
		ID:          r.ID,
		ClientID:    r.ClientID,
		Title:       r.Title,
		Description: r.Description,
		Budget:      r.Budget,
		BudgetType:  valueobject.BudgetType(r.BudgetType),
		Currency:    r.Currency,
		Status:      valueobject.TaskStatus(r.Status),
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
