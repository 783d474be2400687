package tokencipher

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestNew_EmptyKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") должен вернуть ошибку")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	keys := map[string]string{
		"base64": base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32))),
		"строка": "произвольная фраза-ключ",
	}

	for name, key := range keys {
		t.Run(name, func(t *testing.T) {
			c, err := New(key)
			if err != nil {
				t.Fatalf("New() ошибка: %v", err)
			}

			enc, err := c.Encrypt("EAAB-access-token")
			if err != nil {
				t.Fatalf("Encrypt() ошибка: %v", err)
			}
			if strings.Contains(enc, "EAAB") {
				t.Error("зашифрованное значение содержит открытый текст")
			}

			got, ok := c.Decrypt(enc)
			if !ok || got != "EAAB-access-token" {
				t.Errorf("Decrypt() = %q, %v", got, ok)
			}
		})
	}
}

func TestDecrypt_Invalid(t *testing.T) {
	c, _ := New("key-1")
	other, _ := New("key-2")

	foreign, err := other.Encrypt("token")
	if err != nil {
		t.Fatalf("Encrypt() ошибка: %v", err)
	}
	empty, err := c.Encrypt("")
	if err != nil {
		t.Fatalf("Encrypt() ошибка: %v", err)
	}

	tests := map[string]string{
		"пустая строка":   "",
		"не base64":       "%%%",
		"слишком коротко": base64.URLEncoding.EncodeToString([]byte("abc")),
		"чужой ключ":      foreign,
		"пустой токен":    empty,
	}

	for name, enc := range tests {
		t.Run(name, func(t *testing.T) {
			if got, ok := c.Decrypt(enc); ok {
				t.Errorf("Decrypt(%q) = %q, true; ожидается false", enc, got)
			}
		})
	}
}
