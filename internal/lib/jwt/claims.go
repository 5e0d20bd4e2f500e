// Package jwt реализует подпись и проверку JWT токенов с произвольным payload.
//
// Signer описывает интерфейс подписи, SignerImpl — реализация на HMAC-алгоритмах.
// Секрет передаётся в каждый вызов: access и refresh токены подписываются разными ключами.
package jwt

import (
	"time"
)

// Ключи payload. Значения идентификаторов, имени и роли кладутся в base85.
const (
	ClaimSubject    = "sub"  // id пользователя
	ClaimAccessKey  = "a"    // access_key записи токена
	ClaimRefreshKey = "t"    // refresh_key записи токена
	ClaimTokenID    = "r"    // id записи токена
	ClaimUsername   = "n"    // имя пользователя
	ClaimRole       = "role" // роль пользователя
	ClaimExpiresAt  = "exp"
)

// Payload содержимое токена
type Payload map[string]any

// String возвращает строковое значение claim, false если его нет или он не строка.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Signer описывает интерфейс для подписи и проверки токенов.
type Signer interface {
	// Generate добавляет в payload exp = now + ttl и подписывает секретом.
	Generate(payload Payload, secret string, ttl time.Duration) (string, error)
	// Decode возвращает payload или nil, если подпись неверна, токен битый или истёк.
	Decode(token, secret string) Payload
}
