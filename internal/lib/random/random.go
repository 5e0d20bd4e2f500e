// Package random генерирует непрозрачные ключи для записей токенов.
package random

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Размеры энтропии ключей в байтах
const (
	AccessKeyBytes  = 50
	RefreshKeyBytes = 100
)

// URLSafeString возвращает n случайных байт в base64url без паддинга.
func URLSafeString(n int) (string, error) {
	const op = "random.URLSafeString"
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
