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

const escrowColumns = `id, task_id, client_id, freelancer_id, application_id, amount, currency, payment_type,
		status, payment_reference, released_amount, idempotency_key, version, created_at, updated_at,
		funded_at, completed_at, released_at, refunded_at`

type EscrowRepositoryAdapter struct {
	db *sqlx.DB
}

func NewEscrowRepositoryAdapter(db *sqlx.DB) *EscrowRepositoryAdapter {
	return &EscrowRepositoryAdapter{db: db}
}

func (r *EscrowRepositoryAdapter) Create(ctx context.Context, e *entity.Escrow) error {
	query := `
		INSERT INTO escrows (` + escrowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		e.ID, e.TaskID, e.ClientID, e.FreelancerID, e.ApplicationID, e.Amount.Amount, e.Amount.Currency,
		string(e.PaymentType), string(e.Status), e.PaymentReference, e.ReleasedAmount, e.IdempotencyKey,
		e.Version, e.CreatedAt, e.UpdatedAt, e.FundedAt, e.CompletedAt, e.ReleasedAt, e.RefundedAt,
	)
	if err != nil {
		return dbError(err, "failed to create escrow")
	}
	return nil
}

func (r *EscrowRepositoryAdapter) Update(ctx context.Context, e *entity.Escrow) error {
	query := `
		UPDATE escrows SET status = $3, payment_reference = $4, released_amount = $5, updated_at = $6,
		funded_at = $7, completed_at = $8, released_at = $9, refunded_at = $10, version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		e.ID, e.Version, string(e.Status), e.PaymentReference, e.ReleasedAmount, e.UpdatedAt,
		e.FundedAt, e.CompletedAt, e.ReleasedAt, e.RefundedAt,
	)
	if err := requireOneRow(res, err, "failed to update escrow"); err != nil {
		return err
	}
	e.Version++
	return nil
}

func (r *EscrowRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Escrow, error) {
	return r.findOne(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE id = $1`, id)
}

func (r *EscrowRepositoryAdapter) FindByIdempotencyKey(ctx context.Context, clientID uuid.UUID, key string) (*entity.Escrow, error) {
	e, err := r.findOne(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE client_id = $1 AND idempotency_key = $2`, clientID, key)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	return e, err
}

func (r *EscrowRepositoryAdapter) FindByPaymentReference(ctx context.Context, reference string) (*entity.Escrow, error) {
	return r.findOne(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE payment_reference = $1`, reference)
}

func (r *EscrowRepositoryAdapter) FindActiveByTaskID(ctx context.Context, taskID uuid.UUID) (*entity.Escrow, error) {
	e, err := r.findOne(ctx, `SELECT `+escrowColumns+` FROM escrows
		WHERE task_id = $1 AND status NOT IN ('released', 'refunded')`, taskID)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	return e, err
}

func (r *EscrowRepositoryAdapter) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Escrow, error) {
	var rows []escrowRow
	query := `SELECT ` + escrowColumns + ` FROM escrows
		WHERE client_id = $1 OR freelancer_id = $1 ORDER BY created_at DESC`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, dbError(err, "failed to list escrows")
	}
	result := make([]*entity.Escrow, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (r *EscrowRepositoryAdapter) AppendEvents(ctx context.Context, escrowID uuid.UUID, actorID *uuid.UUID, changes []entity.StatusChange) error {
	if len(changes) == 0 {
		return nil
	}
	bi := newBatchInserter(conn(ctx, r.db),
		`INSERT INTO escrow_events (id, escrow_id, actor_id, from_status, to_status, created_at)`, 6, 50)
	for _, c := range changes {
		if err := bi.Add(ctx, uuid.New(), escrowID, actorID, string(c.From), string(c.To), c.At); err != nil {
			return dbError(err, "failed to record escrow events")
		}
	}
	if err := bi.Flush(ctx); err != nil {
		return dbError(err, "failed to record escrow events")
	}
	return nil
}

func (r *EscrowRepositoryAdapter) ListEvents(ctx context.Context, escrowID uuid.UUID) ([]*entity.EscrowEvent, error) {
	var rows []struct {
		ID        uuid.UUID  `db:"id"`
		EscrowID  uuid.UUID  `db:"escrow_id"`
		ActorID   *uuid.UUID `db:"actor_id"`
		From      string     `db:"from_status"`
		To        string     `db:"to_status"`
		CreatedAt time.Time  `db:"created_at"`
	}
	query := `SELECT id, escrow_id, actor_id, from_status, to_status, created_at
		FROM escrow_events WHERE escrow_id = $1 ORDER BY created_at, id`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, escrowID); err != nil {
		return nil, dbError(err, "failed to list escrow events")
	}
	events := make([]*entity.EscrowEvent, len(rows))
	for i, row := range rows {
		events[i] = &entity.EscrowEvent{
			ID: row.ID, EscrowID: row.EscrowID, ActorID: row.ActorID,
			From: row.From, To: row.To, CreatedAt: row.CreatedAt,
		}
	}
	return events, nil
}

func (r *EscrowRepositoryAdapter) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Escrow, error) {
	var row escrowRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFoundOr(err, apperror.ErrEscrowNotFound, "failed to get escrow")
	}
	return row.toEntity(), nil
}

type escrowRow struct {
	ID               uuid.UUID  `db:"id"`
	TaskID           uuid.UUID  `db:"task_id"`
	ClientID         uuid.UUID  `db:"client_id"`
	FreelancerID     uuid.UUID  `db:"freelancer_id"`
	ApplicationID    *uuid.UUID `db:"application_id"`
	Amount           int64      `db:"amount"`
	Currency         string     `db:"currency"`
	PaymentType      string     `db:"payment_type"`
	Status           string     `db:"status"`
	PaymentReference *string    `db:"payment_reference"`
	ReleasedAmount   int64      `db:"released_amount"`
	IdempotencyKey   *string    `db:"idempotency_key"`
	Version          int        `db:"version"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	FundedAt         *time.Time `db:"funded_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	ReleasedAt       *time.Time `db:"released_at"`
	RefundedAt       *time.Time `db:"refunded_at"`
}

func (r *escrowRow) toEntity() *entity.Escrow {
	return &entity.Escrow{
		ID:               r.ID,
		TaskID:           r.TaskID,
		ClientID:         r.ClientID,
		FreelancerID:     r.FreelancerID,
		ApplicationID:    r.ApplicationID,
		Amount:           valueobject.Money{Amount: r.Amount, Currency: r.Currency},
		PaymentType:      valueobject.PaymentType(r.PaymentType),
		Status:           valueobject.EscrowStatus(r.Status),
		PaymentReference: r.PaymentReference,
		ReleasedAmount:   r.ReleasedAmount,
		IdempotencyKey:   r.IdempotencyKey,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		FundedAt:         r.FundedAt,
		CompletedAt:      r.CompletedAt,
		ReleasedAt:       r.ReleasedAt,
		RefundedAt:       r.RefundedAt,
	}
}
