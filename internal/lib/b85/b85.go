// Package b85 кодирует короткие идентификаторы в base85 (алфавит RFC 1924),
// совместимый с Python base64.b85encode. Кодированные значения кладутся в payload токенов.
package b85

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz!#$%&()*+-;<=>?@^_`{|}~"

// ErrCorrupt возвращается Decode на невалидном входе
var ErrCorrupt = errors.New("b85: corrupt input")

var decodeMap [256]byte

func init() {
	for i := range decodeMap {
		decodeMap[i] = 0xFF
	}
	for i := 0; i < len(alphabet); i++ {
		decodeMap[alphabet[i]] = byte(i)
	}
}

// Encode кодирует строку. Хвост дополняется нулями до 4 байт, лишние символы отрезаются.
func Encode(s string) string {
	src := []byte(s)
	padding := (4 - len(src)%4) % 4
	src = append(src, make([]byte, padding)...)

	dst := make([]byte, 0, len(src)/4*5)
	var chunk [5]byte
	for i := 0; i < len(src); i += 4 {
		word := binary.BigEndian.Uint32(src[i : i+4])
		for j := 4; j >= 0; j-- {
			chunk[j] = alphabet[word%85]
			word /= 85
		}
		dst = append(dst, chunk[:]...)
	}
	return string(dst[:len(dst)-padding])
}

// Decode обратная к Encode операция
func Decode(s string) (string, error) {
	src := []byte(s)
	padding := (5 - len(src)%5) % 5
	for i := 0; i < padding; i++ {
		src = append(src, '~')
	}

	dst := make([]byte, 0, len(src)/5*4)
	var word [4]byte
	for i := 0; i < len(src); i += 5 {
		var acc uint64
		for j, c := range src[i : i+5] {
			v := decodeMap[c]
			if v == 0xFF {
				return "", fmt.Errorf("%w: bad character at position %d", ErrCorrupt, i+j)
			}
			acc = acc*85 + uint64(v)
		}
		if acc > 0xFFFFFFFF {
			return "", fmt.Errorf("%w: overflow in hunk starting at byte %d", ErrCorrupt, i)
		}
		binary.BigEndian.PutUint32(word[:], uint32(acc))
		dst = append(dst, word[:]...)
	}
	return string(dst[:len(dst)-padding]), nil
}
