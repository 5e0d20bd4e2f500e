package models

import "time"

// TokenTypeBearer тип токена в ответах login/refresh
const TokenTypeBearer = "Bearer"

// Token запись о выданной паре access/refresh.
// Запись валидна, пока ExpiresAt в будущем; отзыв ставит ExpiresAt = now.
type Token struct {
	ID         int64
	UserID     int64
	AccessKey  string
	RefreshKey string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// TokenPair результат выдачи или ротации токенов
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// LoginResult ответ на успешный вход
type LoginResult struct {
	TokenPair
	Username        string `json:"username"`
	Email           string `json:"email"`
	IsActive        bool   `json:"is_active"`
	IsAuthenticated bool   `json:"is_authenticated"`
	Role            string `json:"role"`
}
