package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const userColumns = `id, email, password_hash, display_name, role, is_verified, verified_at, created_at, updated_at`

type UserRepositoryAdapter struct {
	db *sqlx.DB
}

func NewUserRepositoryAdapter(db *sqlx.DB) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{db: db}
}

func (r *UserRepositoryAdapter) Create(ctx context.Context, u *entity.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, string(u.Role), u.IsVerified, u.VerifiedAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		err = dbError(err, "failed to create user")
		if apperror.IsConflict(err) {
			return apperror.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepositoryAdapter) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepositoryAdapter) SetVerified(ctx context.Context, u *entity.User) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET is_verified = $2, verified_at = $3, updated_at = $4 WHERE id = $1`,
		u.ID, u.IsVerified, u.VerifiedAt, u.UpdatedAt)
	if err := requireOneRow(res, err, "failed to update user verification"); err != nil {
		if errors.Is(err, apperror.ErrStaleVersion) {
			return apperror.ErrUserNotFound
		}
		return err
	}
	return nil
}

func (r *UserRepositoryAdapter) findOne(ctx context.Context, query string, arg interface{}) (*entity.User, error) {
	var row struct {
		ID           uuid.UUID  `db:"id"`
		Email        string     `db:"email"`
		PasswordHash string     `db:"password_hash"`
		DisplayName  string     `db:"display_name"`
		Role         string     `db:"role"`
		IsVerified   bool       `db:"is_verified"`
		VerifiedAt   *time.Time `db:"verified_at"`
		CreatedAt    time.Time  `db:"created_at"`
		UpdatedAt    time.Time  `db:"updated_at"`
	}
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, arg); err != nil {
		return nil, notFoundOr(err, apperror.ErrUserNotFound, "failed to get user")
	}
	return &entity.User{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		DisplayName:  row.DisplayName,
		Role:         valueobject.Role(row.Role),
		IsVerified:   row.IsVerified,
		VerifiedAt:   row.VerifiedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

type SessionRepositoryAdapter struct {
	db *sqlx.DB
}

func NewSessionRepositoryAdapter(db *sqlx.DB) *SessionRepositoryAdapter {
	return &SessionRepositoryAdapter{db: db}
}

func (r *SessionRepositoryAdapter) Create(ctx context.Context, s *entity.Session) error {
	query := `INSERT INTO sessions (id, user_id, refresh_token, user_agent, ip, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, s.ID, s.UserID, s.RefreshToken, s.UserAgent, s.IP, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return dbError(err, "failed to create session")
	}
	return nil
}

func (r *SessionRepositoryAdapter) FindByRefreshToken(ctx context.Context, token string) (*entity.Session, error) {
	var row struct {
		ID           uuid.UUID `db:"id"`
		UserID       uuid.UUID `db:"user_id"`
		RefreshToken string    `db:"refresh_token"`
		UserAgent    *string   `db:"user_agent"`
		IP           *string   `db:"ip"`
		ExpiresAt    time.Time `db:"expires_at"`
		CreatedAt    time.Time `db:"created_at"`
	}
	query := `SELECT id, user_id, refresh_token, user_agent, ip, expires_at, created_at FROM sessions WHERE refresh_token = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, token); err != nil {
		return nil, notFoundOr(err, apperror.ErrInvalidToken, "failed to get session")
	}
	s := &entity.Session{
		ID:           row.ID,
		UserID:       row.UserID,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    row.ExpiresAt,
		CreatedAt:    row.CreatedAt,
	}
	if row.UserAgent != nil {
		s.UserAgent = *row.UserAgent
	}
	if row.IP != nil {
		s.IP = *row.IP
	}
	return s, nil
}

func (r *SessionRepositoryAdapter) Delete(ctx context.Context, token string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, token); err != nil {
		return dbError(err, "failed to delete session")
	}
	return nil
}
