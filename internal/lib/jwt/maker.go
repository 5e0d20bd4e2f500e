package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnsupportedAlgorithm возвращается для не-HMAC алгоритмов
var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// SignerImpl реализует Signer на одном HMAC-алгоритме.
type SignerImpl struct {
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// NewSigner создаёт Signer для алгоритма из конфига (HS256, HS384, HS512).
func NewSigner(algorithm string) (*SignerImpl, error) {
	const op = "jwt.NewSigner"
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnsupportedAlgorithm, algorithm)
	}
	return &SignerImpl{
		method: method,
		now:    time.Now,
	}, nil
}

// Generate подписывает копию payload с claim exp.
func (s *SignerImpl) Generate(payload Payload, secret string, ttl time.Duration) (string, error) {
	const op = "jwt.Generate"
	claims := make(jwt.MapClaims, len(payload)+1)
	for k, v := range payload {
		claims[k] = v
	}
	claims[ClaimExpiresAt] = jwt.NewNumericDate(s.now().UTC().Add(ttl))

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// Decode проверяет подпись, алгоритм и срок действия. Ошибки не возвращает.
func (s *SignerImpl) Decode(tokenStr, secret string) Payload {
	token, err := jwt.Parse(tokenStr, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	return Payload(claims)
}
