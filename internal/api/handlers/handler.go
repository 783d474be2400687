// handler.go — основной обработчик API, реализующий openapi.ServerInterface.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/publication-module/internal/api/openapi"
	"github.com/bigkaa/goartstore/publication-module/internal/service"
)

// PublicationService — операции сервиса публикаций, используемые API.
type PublicationService interface {
	Publish(ctx context.Context, req service.PublishRequest) (*service.PublishResult, error)
	Get(ctx context.Context, ownerID, id string) (*service.PublicationView, error)
}

// APIHandler — обработчик API публикаций.
type APIHandler struct {
	publications PublicationService
	logger       *slog.Logger
}

// NewAPIHandler создаёт обработчик API.
func NewAPIHandler(publications PublicationService, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		publications: publications,
		logger:       logger.With(slog.String("component", "api_handler")),
	}
}

// Проверка на этапе компиляции
var _ openapi.ServerInterface = (*APIHandler)(nil)

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
