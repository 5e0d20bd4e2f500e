// Package auth содержит бизнес-логику учётных записей: регистрация, подтверждение email,
// вход, обновление и отзыв токенов, сброс пароля и админские операции над пользователями.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/account-service/internal/apperr"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage/repository"
)

// VerifyAccountContext префикс контекстной строки токена подтверждения email
const VerifyAccountContext = "verify-account"

// contextTimeLayout формат updated_at в контекстной строке (mmddYYYYHHMMSS)
const contextTimeLayout = "01022006150405"

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ActivateUser(ctx context.Context, id int64, updatedAt time.Time) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
	SetActive(ctx context.Context, id int64, active bool, updatedAt time.Time) (*models.User, error)
	BlockUser(ctx context.Context, id int64, updatedAt time.Time) (*models.User, error)
	UpdateDetails(ctx context.Context, id int64, username, role string, updatedAt time.Time) (*models.User, error)
}

// TokenService выдача, ротация и отзыв токенов
type TokenService interface {
	Issue(ctx context.Context, user *models.User) (*models.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	RevokeAll(ctx context.Context, user *models.User) error
}

// Notifier ставит письма в очередь и не ждёт результата отправки.
type Notifier interface {
	SendVerification(ctx context.Context, user *models.User, token string)
	SendActivationConfirmation(ctx context.Context, user *models.User)
}

// UsersCache кэш списка пользователей
type UsersCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// EventRecorder учитывает исходы auth-операций в метриках
type EventRecorder interface {
	AuthEvent(operation, result string)
}

// Service отвечает за регистрацию, вход и управление аккаунтами.
type Service struct {
	log      *slog.Logger
	users    UserRepository
	tokens   TokenService
	notifier Notifier
	cache    UsersCache
	cacheTTL time.Duration
	events   EventRecorder
	now      func() time.Time
}

// Option настраивает необязательные зависимости Service
type Option func(*Service)

// WithCache включает кэширование списка пользователей
func WithCache(cache UsersCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithEvents подключает учёт событий
func WithEvents(events EventRecorder) Option {
	return func(s *Service) {
		s.events = events
	}
}

// New создает новый экземпляр Service.
func New(log *slog.Logger, users UserRepository, tokens TokenService, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		log:      log,
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ContextString строит прообраз токена подтверждения: префикс, последние 6 символов
// хэша пароля и updated_at. Смена пароля или профиля делает старый токен недействительным.
func ContextString(user *models.User, purpose string) string {
	tail := user.PasswordHash
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return purpose + tail + user.UpdatedAt.UTC().Format(contextTimeLayout)
}

// VerificationToken возвращает bcrypt-хэш контекстной строки пользователя.
func VerificationToken(user *models.User) (string, error) {
	return password.GetHash(ContextString(user, VerifyAccountContext))
}

func hashPassword(raw string) (string, error) {
	hash, err := password.GetHash(raw)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.ErrPasswordTooLong
	}
	if err != nil {
		return "", apperr.Store(err)
	}
	return hash, nil
}

// Signup регистрирует пользователя с ролью "user" и отправляет письмо со ссылкой подтверждения.
func (s *Service) Signup(ctx context.Context, username, email, rawPassword string) (*models.User, error) {
	const op = "auth.Signup"
	log := s.log.With(sl.Op(op))

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		s.record("signup", "duplicate_email")
		return nil, apperr.ErrDuplicateEmail
	case !errors.Is(err, repository.ErrUserNotFound):
		log.Error("failed to check email", sl.Err(err))
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}

	if !password.IsStrong(rawPassword) {
		s.record("signup", "weak_password")
		return nil, apperr.ErrWeakPassword
	}
	hash, err := hashPassword(rawPassword)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return nil, apperr.ErrDuplicateEmail
	case errors.Is(err, repository.ErrUsernameTaken):
		return nil, apperr.ErrDuplicateUsername
	case err != nil:
		log.Error("failed to create user", sl.Err(err))
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}
	log.Info("user registered", sl.UserID(user.ID))

	token, err := VerificationToken(user)
	if err != nil {
		log.Error("failed to build verification token", sl.UserID(user.ID), sl.Err(err))
	} else {
		s.notifier.SendVerification(ctx, user, token)
	}

	s.invalidateUsers(ctx)
	s.record("signup", "success")
	return user, nil
}

// VerifyAccount проверяет токен из письма и активирует аккаунт.
func (s *Service) VerifyAccount(ctx context.Context, email, token string) (*models.User, error) {
	const op = "auth.VerifyAccount"
	log := s.log.With(sl.Op(op))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.ErrEmailNotRegistered
		}
		log.Error("failed to load user", sl.Err(err))
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}

	if !password.Verify(ContextString(user, VerifyAccountContext), token) {
		s.record("verify_account", "invalid_token")
		return nil, apperr.ErrInvalidVerification
	}

	activated, err := s.users.ActivateUser(ctx, user.ID, s.now().UTC())
	if err != nil {
		log.Error("failed to activate user", sl.UserID(user.ID), sl.Err(err))
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}
	log.Info("account activated", sl.UserID(user.ID))

	s.notifier.SendActivationConfirmation(ctx, activated)
	s.invalidateUsers(ctx)
	s.record("verify_account", "success")
	return activated, nil
}

// Login проверяет учётные данные и состояние аккаунта и выдаёт пару токенов.
// Заблокированный аккаунт отклоняется до проверки пароля.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*models.LoginResult, error) {
	const op = "auth.Login"
	log := s.log.With(sl.Op(op))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.record("login", "not_found")
			return nil, apperr.ErrUserDoesNotExist
		}
		log.Error("failed to load user", sl.Err(err))
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}
	if !user.IsActive {
		s.record("login", "not_active")
		return nil, apperr.ErrAccountNotActive
	}
	if !password.Verify(rawPassword, user.PasswordHash) {
		s.record("login", "invalid_password")
		return nil, apperr.ErrInvalidPassword
	}
	if !user.IsAuthenticated {
		s.record("login", "not_authenticated")
		return nil, apperr.ErrAccountNotAuthenticated
	}

	pair, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.record("login", "success")
	return &models.LoginResult{
		TokenPair:       *pair,
		Username:        user.Username,
		Email:           user.Email,
		IsActive:        user.IsActive,
		IsAuthenticated: user.IsAuthenticated,
		Role:            user.Role,
	}, nil
}

// Refresh обменивает refresh токен на новую пару.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	pair, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		s.record("refresh", "failure")
		return nil, err
	}
	s.record("refresh", "success")
	return pair, nil
}

// Logout гасит все токены пользователя.
func (s *Service) Logout(ctx context.Context, user *models.User) error {
	if err := s.tokens.RevokeAll(ctx, user); err != nil {
		return err
	}
	s.record("logout", "success")
	return nil
}

// ResetPassword меняет пароль по паре email + username.
// Текущий пароль не запрашивается. Сдвиг updated_at гасит неиспользованную ссылку подтверждения.
func (s *Service) ResetPassword(ctx context.Context, email, username, newPassword string) error {
	const op = "auth.ResetPassword"
	log := s.log.With(sl.Op(op))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.ErrResetEmailNotFound
		}
		log.Error("failed to load user", sl.Err(err))
		return apperr.Store(fmt.Errorf("%s: %w", op, err))
	}
	if user.Username != username {
		return apperr.ErrResetUsernameMismatch
	}
	if !password.IsStrong(newPassword) {
		return apperr.ErrWeakPassword
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	if err = s.users.UpdatePassword(ctx, user.ID, hash, s.now().UTC()); err != nil {
		log.Error("failed to update password", sl.UserID(user.ID), sl.Err(err))
		return apperr.Store(fmt.Errorf("%s: %w", op, err))
	}
	log.Info("password updated", sl.UserID(user.ID))
	s.record("reset_password", "success")
	return nil
}

func (s *Service) record(operation, result string) {
	if s.events != nil {
		s.events.AuthEvent(operation, result)
	}
}
