// Package repository реализует хранилище пользователей и записей токенов на PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrTokenNotFound = errors.New("token not found")
	ErrEmailTaken    = errors.New("email already taken")
	ErrUsernameTaken = errors.New("username already taken")
)

const (
	uniqueViolation    = "23505"
	usersEmailKey      = "users_email_key"
	usersUsernameKey   = "users_username_key"
	requiredTableCheck = `SELECT
		EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'users') AND
		EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'tokens')`
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New открывает пул соединений и проверяет доступность базы.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет, что миграции применены.
func (s *Storage) CheckDatabaseReady(ctx context.Context) error {
	const op = "storage.CheckDatabaseReady"
	var exists bool
	if err := s.DB.QueryRowContext(ctx, requiredTableCheck).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: required tables users/tokens are missing", op)
	}
	return nil
}

// Close закрывает пул соединений
func (s *Storage) Close() error {
	return s.DB.Close()
}

// mapUniqueViolation переводит нарушение уникальности users в доменные ошибки.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case usersEmailKey:
		return ErrEmailTaken
	case usersUsernameKey:
		return ErrUsernameTaken
	}
	return err
}
