package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/account-service/internal/apperr"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage/repository"
)

// UsersListKey ключ кэша со списком пользователей
const UsersListKey = "users:list"

// ListUsers возвращает всех пользователей, по возможности из кэша.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "auth.ListUsers"
	log := s.log.With(sl.Op(op))

	if s.cache != nil {
		var cached []*models.User
		found, err := s.cache.Get(ctx, UsersListKey, &cached)
		if err != nil {
			log.Warn("failed to read users from cache", sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}

	if s.cache != nil {
		if err = s.cache.Set(ctx, UsersListKey, users, s.cacheTTL); err != nil {
			log.Warn("failed to cache users", sl.Err(err))
		}
	}
	return users, nil
}

// GetUser возвращает пользователя по id
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "auth.GetUser"
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, s.mapUserErr(op, id, err)
	}
	return user, nil
}

// Block снимает флаг is_active и гасит все токены пользователя одной транзакцией.
func (s *Service) Block(ctx context.Context, id int64) (*models.User, error) {
	const op = "auth.Block"
	user, err := s.users.BlockUser(ctx, id, s.now().UTC())
	if err != nil {
		return nil, s.mapUserErr(op, id, err)
	}
	s.log.Info("user blocked", sl.Op(op), sl.UserID(id))
	s.invalidateUsers(ctx)
	return user, nil
}

// Unblock возвращает флаг is_active
func (s *Service) Unblock(ctx context.Context, id int64) (*models.User, error) {
	const op = "auth.Unblock"
	user, err := s.users.SetActive(ctx, id, true, s.now().UTC())
	if err != nil {
		return nil, s.mapUserErr(op, id, err)
	}
	s.log.Info("user unblocked", sl.Op(op), sl.UserID(id))
	s.invalidateUsers(ctx)
	return user, nil
}

// UpdateDetails меняет username и роль пользователя.
func (s *Service) UpdateDetails(ctx context.Context, id int64, username, role string) (*models.User, error) {
	const op = "auth.UpdateDetails"
	user, err := s.users.UpdateDetails(ctx, id, username, role, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, apperr.ErrDuplicateUsername
		}
		return nil, s.mapUserErr(op, id, err)
	}
	s.log.Info("user details updated", sl.Op(op), sl.UserID(id))
	s.invalidateUsers(ctx)
	return user, nil
}

func (s *Service) mapUserErr(op string, id int64, err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperr.UserNotFound(id)
	}
	s.log.Error("user store failure", sl.Op(op), sl.UserID(id), sl.Err(err))
	return apperr.Store(fmt.Errorf("%s: %w", op, err))
}

func (s *Service) invalidateUsers(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, UsersListKey); err != nil {
		s.log.Warn("failed to invalidate users cache", sl.Err(err))
	}
}
