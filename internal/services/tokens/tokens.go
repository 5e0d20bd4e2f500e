// Package tokens управляет жизненным циклом пар access/refresh токенов:
// выдача, ротация, проверка access токена и отзыв всех записей пользователя.
//
// Запись о паре хранится в базе до expires_at. Отзыв и ротация ставят expires_at = now,
// поэтому refresh токен можно обменять не больше одного раза.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/account-service/internal/apperr"
	"github.com/magabrotheeeer/account-service/internal/lib/b85"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/random"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage/repository"
)

// ErrUnresolved access токен не соответствует действующей записи
var ErrUnresolved = errors.New("token does not resolve to an active session")

// Repository описывает операции хранилища над записями токенов.
type Repository interface {
	CreateToken(ctx context.Context, token models.Token) (int64, error)
	RotateToken(ctx context.Context, userID int64, refreshKey, accessKey string, next models.Token) (*models.User, int64, error)
	FindUserByAccess(ctx context.Context, accessKey string, tokenID, userID int64) (*models.User, error)
	ExpireUserTokens(ctx context.Context, userID int64) (int64, error)
}

// Config секреты и время жизни токенов
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Service выдаёт и проверяет токены.
type Service struct {
	log    *slog.Logger
	repo   Repository
	signer jwt.Signer
	cfg    Config
	now    func() time.Time
	keygen func(n int) (string, error)
}

// New создаёт сервис токенов.
func New(log *slog.Logger, repo Repository, signer jwt.Signer, cfg Config) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		signer: signer,
		cfg:    cfg,
		now:    time.Now,
		keygen: random.URLSafeString,
	}
}

type keyPair struct {
	access  string
	refresh string
}

func (s *Service) newKeys() (keyPair, error) {
	access, err := s.keygen(random.AccessKeyBytes)
	if err != nil {
		return keyPair{}, err
	}
	refresh, err := s.keygen(random.RefreshKeyBytes)
	if err != nil {
		return keyPair{}, err
	}
	return keyPair{access: access, refresh: refresh}, nil
}

// Issue создаёт запись с новыми ключами и подписывает по ней пару токенов.
func (s *Service) Issue(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "tokens.Issue"
	keys, err := s.newKeys()
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}

	tokenID, err := s.repo.CreateToken(ctx, models.Token{
		UserID:     user.ID,
		AccessKey:  keys.access,
		RefreshKey: keys.refresh,
		ExpiresAt:  s.now().UTC().Add(s.cfg.RefreshTTL),
	})
	if err != nil {
		s.log.Error("failed to save token", sl.Op(op), sl.UserID(user.ID), sl.Err(err))
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}
	return s.sign(user, tokenID, keys)
}

// Rotate обменивает refresh токен на новую пару, погасив использованную запись.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "tokens.Rotate"
	payload := s.signer.Decode(refreshToken, s.cfg.RefreshSecret)
	if payload == nil {
		return nil, apperr.ErrInvalidRefreshToken
	}
	userID, ok := decodeID(payload, jwt.ClaimSubject)
	if !ok {
		return nil, apperr.ErrInvalidRefreshToken
	}
	refreshKey, ok := payload.String(jwt.ClaimRefreshKey)
	if !ok {
		return nil, apperr.ErrInvalidRefreshToken
	}
	accessKey, ok := payload.String(jwt.ClaimAccessKey)
	if !ok {
		return nil, apperr.ErrInvalidRefreshToken
	}

	keys, err := s.newKeys()
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}
	user, tokenID, err := s.repo.RotateToken(ctx, userID, refreshKey, accessKey, models.Token{
		UserID:     userID,
		AccessKey:  keys.access,
		RefreshKey: keys.refresh,
		ExpiresAt:  s.now().UTC().Add(s.cfg.RefreshTTL),
	})
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) || errors.Is(err, repository.ErrUserNotFound) {
			s.log.Info("refresh token reuse or unknown record", sl.Op(op), sl.UserID(userID))
			return nil, apperr.ErrInvalidTokenRequest
		}
		s.log.Error("failed to rotate token", sl.Op(op), sl.UserID(userID), sl.Err(err))
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}
	return s.sign(user, tokenID, keys)
}

// Resolve возвращает владельца access токена или ErrUnresolved.
func (s *Service) Resolve(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "tokens.Resolve"
	payload := s.signer.Decode(accessToken, s.cfg.AccessSecret)
	if payload == nil {
		return nil, ErrUnresolved
	}
	userID, ok := decodeID(payload, jwt.ClaimSubject)
	if !ok {
		return nil, ErrUnresolved
	}
	tokenID, ok := decodeID(payload, jwt.ClaimTokenID)
	if !ok {
		return nil, ErrUnresolved
	}
	accessKey, ok := payload.String(jwt.ClaimAccessKey)
	if !ok {
		return nil, ErrUnresolved
	}

	user, err := s.repo.FindUserByAccess(ctx, accessKey, tokenID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrUnresolved
		}
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}
	return user, nil
}

// RevokeAll гасит все действующие записи пользователя.
func (s *Service) RevokeAll(ctx context.Context, user *models.User) error {
	const op = "tokens.RevokeAll"
	n, err := s.repo.ExpireUserTokens(ctx, user.ID)
	if err != nil {
		s.log.Error("failed to revoke tokens", sl.Op(op), sl.UserID(user.ID), sl.Err(err))
		return apperr.Store(fmt.Errorf("%s: %w", op, err))
	}
	s.log.Debug("tokens revoked", sl.Op(op), sl.UserID(user.ID), slog.Int64("count", n))
	return nil
}

func (s *Service) sign(user *models.User, tokenID int64, keys keyPair) (*models.TokenPair, error) {
	const op = "tokens.sign"
	subject := b85.Encode(strconv.FormatInt(user.ID, 10))

	access, err := s.signer.Generate(jwt.Payload{
		jwt.ClaimSubject:   subject,
		jwt.ClaimAccessKey: keys.access,
		jwt.ClaimTokenID:   b85.Encode(strconv.FormatInt(tokenID, 10)),
		jwt.ClaimUsername:  b85.Encode(user.Username),
		jwt.ClaimRole:      b85.Encode(user.Role),
	}, s.cfg.AccessSecret, s.cfg.AccessTTL)
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}

	refresh, err := s.signer.Generate(jwt.Payload{
		jwt.ClaimSubject:    subject,
		jwt.ClaimRefreshKey: keys.refresh,
		jwt.ClaimAccessKey:  keys.access,
	}, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("%s: %w", op, err))
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
		TokenType:    models.TokenTypeBearer,
	}, nil
}

// decodeID достаёт из payload base85-кодированный числовой id.
func decodeID(payload jwt.Payload, key string) (int64, bool) {
	encoded, ok := payload.String(key)
	if !ok {
		return 0, false
	}
	raw, err := b85.Decode(encoded)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
