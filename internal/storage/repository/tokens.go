package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/account-service/internal/models"
)

// CreateToken сохраняет запись о новой паре ключей и возвращает её id.
func (s *Storage) CreateToken(ctx context.Context, token models.Token) (int64, error) {
	const op = "storage.CreateToken"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	query := `INSERT INTO tokens (user_id, access_key, refresh_key, expires_at)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		token.UserID, token.AccessKey, token.RefreshKey, token.ExpiresAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// RotateToken в одной транзакции гасит запись с ключами refreshKey/accessKey
// (expires_at = now), создаёт запись next и возвращает владельца и id новой записи.
// Условный UPDATE сериализует конкурентные ротации: проигравший получает ErrTokenNotFound.
// Время берётся из clock_timestamp(), чтобы повторная проверка условия после ожидания
// блокировки шла по времени позже отметки победителя.
func (s *Storage) RotateToken(ctx context.Context, userID int64, refreshKey, accessKey string,
	next models.Token) (user *models.User, tokenID int64, err error) {
	const op = "storage.RotateToken"
	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var consumed int64
	err = tx.QueryRowContext(ctx,
		`UPDATE tokens SET expires_at = clock_timestamp()
		 WHERE refresh_key = $1 AND access_key = $2 AND user_id = $3 AND expires_at > clock_timestamp()
		 RETURNING id`,
		refreshKey, accessKey, userID).Scan(&consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrTokenNotFound
		}
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.QueryRowContext(ctx,
		`INSERT INTO tokens (user_id, access_key, refresh_key, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		userID, next.AccessKey, next.RefreshKey, next.ExpiresAt).Scan(&tokenID); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	user, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return user, tokenID, nil
}

// FindUserByAccess возвращает владельца действующей записи с ключом accessKey и id tokenID.
func (s *Storage) FindUserByAccess(ctx context.Context, accessKey string, tokenID, userID int64) (*models.User, error) {
	const op = "storage.FindUserByAccess"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.id, u.username, u.email, u.password_hash, u.is_active, u.is_authenticated,
			         u.role, u.created_at, u.updated_at
			  FROM tokens t
			  JOIN users u ON u.id = t.user_id
			  WHERE t.access_key = $1 AND t.id = $2 AND t.user_id = $3 AND t.expires_at > NOW()`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, accessKey, tokenID, userID))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			err = ErrTokenNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ExpireUserTokens гасит все действующие записи пользователя и возвращает их количество.
func (s *Storage) ExpireUserTokens(ctx context.Context, userID int64) (int64, error) {
	const op = "storage.ExpireUserTokens"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE tokens SET expires_at = NOW() WHERE user_id = $1 AND expires_at > NOW()`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// DeleteExpiredTokens удаляет записи, истёкшие раньше before.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.DeleteExpiredTokens"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
