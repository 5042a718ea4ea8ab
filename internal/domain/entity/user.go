package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	DisplayName  string
	Role         valueobject.Role
	IsVerified   bool
	VerifiedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == valueobject.RoleAdmin
}

func (u *User) SetVerified(verified bool) {
	now := time.Now()
	u.IsVerified = verified
	if verified {
		if u.VerifiedAt == nil {
			u.VerifiedAt = &now
		}
	} else {
		u.VerifiedAt = nil
	}
	u.UpdatedAt = now
}

// Session is a stored refresh token. Refresh rotates it.
type Session struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	RefreshToken string
	UserAgent    string
	IP           string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
