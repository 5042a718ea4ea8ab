package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/validation"
)

// AuthService handles registration, login and refresh token rotation.
type AuthService struct {
	users        repository.UserRepository
	sessions     repository.SessionRepository
	tokenManager *TokenManager
	now          func() time.Time
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

type LoginInput struct {
	Email    string
	Password string
}

// SessionMeta is stored with the refresh token for auditing.
type SessionMeta struct {
	UserAgent string
	IP        string
}

type AuthResult struct {
	User      *entity.User
	TokenPair *TokenPair
}

func NewAuthService(users repository.UserRepository, sessions repository.SessionRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		tokenManager: tokenManager,
		now:          time.Now,
	}
}

// Register creates a client or freelancer account and signs it in.
// Admin accounts are provisioned out of band.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta SessionMeta) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	role, err := valueobject.NewRole(in.Role)
	if err != nil {
		return nil, err
	}

	email := validation.NormalizeEmail(in.Email)
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperror.ErrEmailTaken
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to hash password")
	}

	now := s.now()
	user := &entity.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(passHash),
		DisplayName:  displayName,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.openSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("user registered")

	return &AuthResult{User: user, TokenPair: pair}, nil
}

// Login never reveals whether the email exists.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta SessionMeta) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, validation.NormalizeEmail(in.Email))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	pair, err := s.openSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, TokenPair: pair}, nil
}

// Refresh swaps a live refresh token for a new pair. The old session is removed,
// so a refresh token works exactly once.
func (s *AuthService) Refresh(ctx context.Context, oldToken string, meta SessionMeta) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(oldToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}

	session, err := s.sessions.FindByRefreshToken(ctx, oldToken)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) || session.UserID.String() != claims.Subject {
		_ = s.sessions.Delete(ctx, oldToken)
		return nil, apperror.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.ErrInvalidToken
		}
		return nil, err
	}

	if err := s.sessions.Delete(ctx, oldToken); err != nil {
		return nil, err
	}
	return s.openSession(ctx, user, meta)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Delete(ctx, refreshToken)
}

func (s *AuthService) openSession(ctx context.Context, user *entity.User, meta SessionMeta) (*TokenPair, error) {
	pair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to issue tokens")
	}

	session := &entity.Session{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		UserAgent:    meta.UserAgent,
		IP:           meta.IP,
		ExpiresAt:    refreshExp,
		CreatedAt:    s.now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return pair, nil
}
