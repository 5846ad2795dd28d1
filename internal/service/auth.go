package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lan_messenger/internal/domain"
	"lan_messenger/internal/repository"
	apperrors "lan_messenger/pkg/errors"
	"lan_messenger/pkg/logger"
)

type AuthService interface {
	// Authenticate resolves the login handshake. An unknown username is
	// auto-registered with the supplied credential; the second return
	// reports whether that happened. A known username with a mismatched
	// password fails with ErrWrongPassword.
	Authenticate(ctx context.Context, username, password string) (*domain.User, bool, error)
}

type authService struct {
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		log:      log,
	}
}

func (s *authService) Authenticate(ctx context.Context, username, password string) (*domain.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, false, apperrors.ErrEmptyUsername
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}

	if user == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, false, fmt.Errorf("failed to hash password: %w", err)
		}

		user = &domain.User{
			Username:     username,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, false, err
		}

		s.log.Info("New user registered", "username", username)
		return user, true, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("Login failed", "username", username, "reason", "wrong password")
		return nil, false, apperrors.ErrWrongPassword
	}

	return user, false, nil
}
