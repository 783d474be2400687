// publications.go — обработчики POST /api/v1/publications
// и GET /api/v1/publications/{id}.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/goartstore/publication-module/internal/api/errors"
	"github.com/bigkaa/goartstore/publication-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
	"github.com/bigkaa/goartstore/publication-module/internal/service"
)

// IdempotencyKeyHeader — заголовок ключа идемпотентности.
const IdempotencyKeyHeader = "Idempotency-Key"

// --- DTO запроса ---

type publishRequest struct {
	Channels []string     `json:"channels"`
	Post     postDTO      `json:"post"`
	Idea     string       `json:"idea"`
	Images   []imageInput `json:"images"`
}

type postDTO struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	CTA      string   `json:"cta"`
	Hashtags []string `json:"hashtags"`
}

type imageInput struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	DataURL string `json:"dataUrl"`
}

// --- DTO ответа ---

type publishResponse struct {
	OK              bool                            `json:"ok"`
	PublicationID   string                          `json:"publication_id"`
	Images          []string                        `json:"images"`
	PublishableURLs []string                        `json:"publishableUrls"`
	UploadErrors    []model.Diagnostic              `json:"uploadErrors"`
	Results         map[model.Channel]model.Outcome `json:"results"`
	Replayed        bool                            `json:"replayed,omitempty"`
}

type publicationDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CTA       string    `json:"cta"`
	Hashtags  []string  `json:"hashtags"`
	Images    []string  `json:"images"`
	Idea      string    `json:"idea"`
	CreatedAt time.Time `json:"created_at"`
}

type deliveryDTO struct {
	ID          string     `json:"id"`
	Channel     string     `json:"channel"`
	Status      string     `json:"status"`
	ExternalID  *string    `json:"external_id"`
	ExternalURL *string    `json:"external_url"`
	LastError   *string    `json:"last_error"`
	DeliveredAt *time.Time `json:"delivered_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type publicationResponse struct {
	OK          bool           `json:"ok"`
	Publication publicationDTO `json:"publication"`
	Deliveries  []deliveryDTO  `json:"deliveries"`
}

// CreatePublication — POST /api/v1/publications.
// Ошибки каналов не меняют статус ответа: они возвращаются в results.
func (h *APIHandler) CreatePublication(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r.Context())
	if owner == "" {
		apierrors.Unauthorized(w, "Владелец не определён")
		return
	}

	var body publishRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	images := make([]model.ImageInput, 0, len(body.Images))
	for _, img := range body.Images {
		images = append(images, model.ImageInput{Name: img.Name, Type: img.Type, DataURL: img.DataURL})
	}

	result, err := h.publications.Publish(r.Context(), service.PublishRequest{
		OwnerID:        owner,
		Channels:       body.Channels,
		Title:          body.Post.Title,
		Content:        body.Post.Content,
		CTA:            body.Post.CTA,
		Hashtags:       body.Post.Hashtags,
		Idea:           body.Idea,
		Images:         images,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		h.handlePublishError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, publishResponse{
		OK:              true,
		PublicationID:   result.Publication.ID,
		Images:          nonNil(result.Publication.Images),
		PublishableURLs: nonNil(result.PublishableURLs),
		UploadErrors:    nonNilDiagnostics(result.UploadErrors),
		Results:         result.Results,
		Replayed:        result.Replayed,
	})
}

func (h *APIHandler) handlePublishError(w http.ResponseWriter, err error) {
	var uploadErr *service.UploadFailedError
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.As(err, &uploadErr):
		apierrors.UploadFailed(w, "Не удалось загрузить ни одного изображения", uploadErr.Diagnostics)
	default:
		h.logger.Error("Ошибка публикации", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при публикации")
	}
}

// GetPublication — GET /api/v1/publications/{id}.
func (h *APIHandler) GetPublication(w http.ResponseWriter, r *http.Request, id openapi_types.UUID) {
	owner := middleware.OwnerFromContext(r.Context())
	if owner == "" {
		apierrors.Unauthorized(w, "Владелец не определён")
		return
	}

	view, err := h.publications.Get(r.Context(), owner, id.String())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Публикация не найдена")
			return
		}
		h.logger.Error("Ошибка получения публикации",
			slog.String("publication_id", id.String()),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при получении публикации")
		return
	}

	p := view.Publication
	resp := publicationResponse{
		OK: true,
		Publication: publicationDTO{
			ID:        p.ID,
			Title:     p.Title,
			Content:   p.Body,
			CTA:       p.CTA,
			Hashtags:  nonNil(p.Hashtags),
			Images:    nonNil(p.Images),
			Idea:      p.Idea,
			CreatedAt: p.CreatedAt,
		},
		Deliveries: make([]deliveryDTO, 0, len(view.Deliveries)),
	}
	for _, d := range view.Deliveries {
		resp.Deliveries = append(resp.Deliveries, deliveryDTO{
			ID:          d.ID,
			Channel:     string(d.Channel),
			Status:      string(d.Status),
			ExternalID:  d.ExternalID,
			ExternalURL: d.ExternalURL,
			LastError:   d.LastError,
			DeliveredAt: d.DeliveredAt,
			CreatedAt:   d.CreatedAt,
			UpdatedAt:   d.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilDiagnostics(d []model.Diagnostic) []model.Diagnostic {
	if d == nil {
		return []model.Diagnostic{}
	}
	return d
}
