// Package models содержит доменные модели сервиса учётных записей:
// пользователя, запись о выданной паре токенов и ответы auth-операций.
package models

import "time"

// Роли пользователей
const (
	RoleUser  = "user"
	RoleAdmin = "Admin"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	IsActive        bool      `json:"is_active"`        // доступность аккаунта, управляется админом
	IsAuthenticated bool      `json:"is_authenticated"` // email подтверждён
	Role            string    `json:"role"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

