// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

var (
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrUploadFailed — изображения переданы, но ни одно не загружено.
	ErrUploadFailed = errors.New("не удалось загрузить изображения")
	// ErrNotFound — публикация не найдена.
	ErrNotFound = errors.New("публикация не найдена")
)

// UploadFailedError — ErrUploadFailed с диагностикой по каждому изображению.
type UploadFailedError struct {
	Diagnostics []model.Diagnostic
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("%s: ошибок %d", ErrUploadFailed.Error(), len(e.Diagnostics))
}

func (e *UploadFailedError) Unwrap() error {
	return ErrUploadFailed
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
