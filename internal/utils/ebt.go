package utils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// NormalizeCardNumber strips spaces and dashes and validates an EBT card
// number (16 to 19 digits, Luhn checksum).
func NormalizeCardNumber(raw string) (string, error) {
	var builder strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == ' ' || r == '-':
		default:
			return "", fmt.Errorf("invalid character %q in card number", r)
		}
	}

	number := builder.String()
	if len(number) < 16 || len(number) > 19 {
		return "", fmt.Errorf("invalid card number length: %d", len(number))
	}
	if !luhnValid(number) {
		return "", fmt.Errorf("card number failed checksum")
	}
	return number, nil
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// MaskCardNumber keeps the last four digits visible.
func MaskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

// GenerateHMAC fingerprints a card number so duplicates can be detected
// without decrypting stored cards.
func GenerateHMAC(cardNumber, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(cardNumber))
	return hex.EncodeToString(h.Sum(nil))
}

var errBadPadding = errors.New("ciphertext has bad padding")

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || !bytes.Equal(b[len(b)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, errBadPadding
	}
	return b[:len(b)-n], nil
}

// Encrypt seals a card number with AES-CBC under key and returns
// hex(iv || ciphertext).
func Encrypt(plain string, key []byte) (string, error) {
	if plain == "" {
		return "", errors.New("nothing to encrypt")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("invalid encryption key: %w", err)
	}

	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to read iv: %w", err)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func Decrypt(sealed string, key []byte) (string, error) {
	raw, err := hex.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("sealed card number is not hex: %w", err)
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("sealed card number has %d bytes", len(raw))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("invalid encryption key: %w", err)
	}

	body := make([]byte, len(raw)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, raw[:aes.BlockSize]).CryptBlocks(body, raw[aes.BlockSize:])

	plain, err := pkcs7Unpad(body, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
