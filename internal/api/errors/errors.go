// Пакет errors — ответы с ошибками в едином формате Publication Module.
// Формат: {"ok": false, "error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeUploadFailed    = "UPLOAD_FAILED"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// errorBody — тело ответа ошибки.
type errorBody struct {
	OK    bool        `json:"ok"`
	Error errorDetail `json:"error"`
	// UploadErrors — диагностика изображений (только для UPLOAD_FAILED)
	UploadErrors []model.Diagnostic `json:"uploadErrors,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	write(w, statusCode, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func write(w http.ResponseWriter, statusCode int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// UploadFailed — 422 ни одно изображение не загружено.
// Диагностика по каждому изображению передаётся в uploadErrors.
func UploadFailed(w http.ResponseWriter, message string, diagnostics []model.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []model.Diagnostic{}
	}
	write(w, http.StatusUnprocessableEntity, errorBody{
		Error:        errorDetail{Code: CodeUploadFailed, Message: message},
		UploadErrors: diagnostics,
	})
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 доступ запрещён.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// RateLimited — 429 превышен лимит запросов.
func RateLimited(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
