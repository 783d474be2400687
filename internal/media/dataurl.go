package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Ошибки разбора data URL.
var (
	errNotDataURL   = errors.New("значение не является data URL")
	errNotBase64    = errors.New("поддерживается только base64-кодирование")
	errEmptyPayload = errors.New("пустое содержимое изображения")
	errNotImage     = errors.New("MIME-тип не является изображением")
)

// decoded — результат разбора data URL.
type decoded struct {
	mime string
	data []byte
}

// parseDataURL разбирает строку вида data:<mime>;base64,<payload>.
// Если MIME в URL не указан, используется declaredType.
func parseDataURL(dataURL, declaredType string, maxBytes int) (*decoded, error) {
	s := strings.TrimSpace(dataURL)
	if !strings.HasPrefix(strings.ToLower(s), "data:") {
		return nil, errNotDataURL
	}

	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, errNotDataURL
	}

	params := strings.Split(header, ";")
	mime := strings.ToLower(strings.TrimSpace(params[0]))
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return nil, errNotBase64
	}

	if mime == "" {
		mime = strings.ToLower(strings.TrimSpace(declaredType))
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: %q", errNotImage, mime)
	}

	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, errEmptyPayload
	}

	// Оценка размера до декодирования, чтобы не выделять память под заведомо большой объект
	if base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return nil, fmt.Errorf("изображение больше допустимого размера %d байт", maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, errEmptyPayload
	}
	if len(data) > maxBytes {
		return nil, fmt.Errorf("изображение больше допустимого размера %d байт", maxBytes)
	}

	return &decoded{mime: mime, data: data}, nil
}
