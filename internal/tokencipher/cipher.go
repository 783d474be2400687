// Пакет tokencipher — расшифровка токенов доступа к каналам,
// сохранённых модулем интеграций в channel_bindings.
// Формат: base64url(nonce || AES-256-GCM ciphertext).
package tokencipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Cipher шифрует и расшифровывает токены через AES-256-GCM.
type Cipher struct {
	gcm cipher.AEAD
}

// New создаёт Cipher.
// key — base64-строка с 32-байтовым ключом; любая другая строка
// приводится к 32 байтам через SHA-256.
func New(key string) (*Cipher, error) {
	if key == "" {
		return nil, fmt.Errorf("ключ шифрования токенов не задан")
	}

	keyBytes, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(keyBytes) != 32 {
		h := sha256.Sum256([]byte(key))
		keyBytes = h[:]
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	return &Cipher{gcm: gcm}, nil
}

// Encrypt шифрует токен и возвращает base64url-строку.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	ciphertext := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt расшифровывает токен.
// Возвращает ok=false для пустого, повреждённого или чужого значения,
// а также если расшифрованный токен пустой.
func (c *Cipher) Decrypt(encrypted string) (string, bool) {
	encrypted = strings.TrimSpace(encrypted)
	if encrypted == "" {
		return "", false
	}

	data, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return "", false
	}

	nonceSize := c.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", false
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil || len(plaintext) == 0 {
		return "", false
	}
	return string(plaintext), true
}
