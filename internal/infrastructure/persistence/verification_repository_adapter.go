package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const verificationColumns = `id, user_id, type, personal_info, business_info, documents, status, admin_notes,
		reviewed_by, provider_reference, version, created_at, updated_at, reviewed_at`

type VerificationRepositoryAdapter struct {
	db *sqlx.DB
}

func NewVerificationRepositoryAdapter(db *sqlx.DB) *VerificationRepositoryAdapter {
	return &VerificationRepositoryAdapter{db: db}
}

func (r *VerificationRepositoryAdapter) Create(ctx context.Context, v *entity.VerificationRequest) error {
	docs, err := json.Marshal(v.Documents)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "failed to encode documents")
	}
	query := `INSERT INTO verification_requests (` + verificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = conn(ctx, r.db).ExecContext(ctx, query,
		v.ID, v.UserID, string(v.Type), []byte(v.PersonalInfo), []byte(v.BusinessInfo), docs, string(v.Status),
		v.AdminNotes, v.ReviewedBy, v.ProviderReference, v.Version, v.CreatedAt, v.UpdatedAt, v.ReviewedAt,
	)
	if err != nil {
		return dbError(err, "failed to create verification request")
	}
	return nil
}

func (r *VerificationRepositoryAdapter) Update(ctx context.Context, v *entity.VerificationRequest) error {
	query := `
		UPDATE verification_requests SET status = $3, admin_notes = $4, reviewed_by = $5, provider_reference = $6,
		reviewed_at = $7, updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		v.ID, v.Version, string(v.Status), v.AdminNotes, v.ReviewedBy, v.ProviderReference, v.ReviewedAt, v.UpdatedAt,
	)
	if err := requireOneRow(res, err, "failed to update verification request"); err != nil {
		return err
	}
	v.Version++
	return nil
}

func (r *VerificationRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.VerificationRequest, error) {
	return r.findOne(ctx, `SELECT `+verificationColumns+` FROM verification_requests WHERE id = $1`, id)
}

func (r *VerificationRepositoryAdapter) FindByProviderReference(ctx context.Context, ref string) (*entity.VerificationRequest, error) {
	return r.findOne(ctx, `SELECT `+verificationColumns+` FROM verification_requests WHERE provider_reference = $1`, ref)
}

func (r *VerificationRepositoryAdapter) FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*entity.VerificationRequest, error) {
	v, err := r.findOne(ctx, `SELECT `+verificationColumns+` FROM verification_requests
		WHERE user_id = $1 AND status IN ('pending', 'processing')`, userID)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	return v, err
}

func (r *VerificationRepositoryAdapter) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.VerificationRequest, error) {
	return r.list(ctx, `SELECT `+verificationColumns+` FROM verification_requests
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *VerificationRepositoryAdapter) List(ctx context.Context, filter repository.VerificationFilter) ([]*entity.VerificationRequest, int, error) {
	clause := ""
	var args []interface{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clause = " WHERE status = $1"
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, `SELECT COUNT(*) FROM verification_requests`+clause, args...); err != nil {
		return nil, 0, dbError(err, "failed to count verification requests")
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM verification_requests%s ORDER BY created_at LIMIT $%d OFFSET $%d`,
		verificationColumns, clause, len(args)-1, len(args))
	items, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *VerificationRepositoryAdapter) findOne(ctx context.Context, query string, args ...interface{}) (*entity.VerificationRequest, error) {
	var row verificationRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFoundOr(err, apperror.ErrVerificationNotFound, "failed to get verification request")
	}
	return row.toEntity()
}

func (r *VerificationRepositoryAdapter) list(ctx context.Context, query string, args ...interface{}) ([]*entity.VerificationRequest, error) {
	var rows []verificationRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbError(err, "failed to list verification requests")
	}
	result := make([]*entity.VerificationRequest, 0, len(rows))
	for i := range rows {
		v, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

type verificationRow struct {
	ID                uuid.UUID  `db:"id"`
	UserID            uuid.UUID  `db:"user_id"`
	Type              string     `db:"type"`
	PersonalInfo      []byte     `db:"personal_info"`
	BusinessInfo      []byte     `db:"business_info"`
	Documents         []byte     `db:"documents"`
	Status            string     `db:"status"`
	AdminNotes        *string    `db:"admin_notes"`
	ReviewedBy        *uuid.UUID `db:"reviewed_by"`
	ProviderReference *string    `db:"provider_reference"`
	Version           int        `db:"version"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	ReviewedAt        *time.Time `db:"reviewed_at"`
}

func (r *verificationRow) toEntity() (*entity.VerificationRequest, error) {
	var docs []entity.VerificationDocument
	if err := json.Unmarshal(r.Documents, &docs); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "corrupt verification documents")
	}
	return &entity.VerificationRequest{
		ID:                r.ID,
		UserID:            r.UserID,
		Type:              valueobject.VerificationType(r.Type),
		PersonalInfo:      json.RawMessage(r.PersonalInfo),
		BusinessInfo:      json.RawMessage(r.BusinessInfo),
		Documents:         docs,
		Status:            valueobject.VerificationStatus(r.Status),
		AdminNotes:        r.AdminNotes,
		ReviewedBy:        r.ReviewedBy,
		ProviderReference: r.ProviderReference,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		ReviewedAt:        r.ReviewedAt,
	}, nil
}
