// media.go — отдача медиа-объектов: публичные ссылки и ссылки с подписью.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	apierrors "github.com/bigkaa/goartstore/publication-module/internal/api/errors"
	"github.com/bigkaa/goartstore/publication-module/internal/storage/filestore"
)

// MediaStore — хранилище объектов, из которого отдаются изображения.
type MediaStore interface {
	Open(objectPath string) (*os.File, *filestore.ObjectInfo, error)
	VerifySignature(objectPath, token string) error
}

// MediaHandler — обработчик маршрутов /media/public/* и /media/signed/*.
type MediaHandler struct {
	store  MediaStore
	logger *slog.Logger
}

// NewMediaHandler создаёт обработчик медиа.
func NewMediaHandler(store MediaStore, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		store:  store,
		logger: logger.With(slog.String("component", "media_handler")),
	}
}

// ServePublic — GET /media/public/*.
func (h *MediaHandler) ServePublic(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, strings.TrimPrefix(r.URL.Path, filestore.PublicRoutePrefix))
}

// ServeSigned — GET /media/signed/*?token=...
func (h *MediaHandler) ServeSigned(w http.ResponseWriter, r *http.Request) {
	objectPath := strings.TrimPrefix(r.URL.Path, filestore.SignedRoutePrefix)

	token := r.URL.Query().Get("token")
	if token == "" {
		apierrors.Unauthorized(w, "Отсутствует подпись ссылки")
		return
	}
	if err := h.store.VerifySignature(objectPath, token); err != nil {
		if errors.Is(err, filestore.ErrInvalidPath) {
			apierrors.NotFound(w, "Объект не найден")
			return
		}
		apierrors.Forbidden(w, "Недействительная или просроченная ссылка")
		return
	}

	h.serve(w, r, objectPath)
}

func (h *MediaHandler) serve(w http.ResponseWriter, r *http.Request, objectPath string) {
	f, info, err := h.store.Open(objectPath)
	if err != nil {
		if errors.Is(err, filestore.ErrObjectNotFound) || errors.Is(err, filestore.ErrInvalidPath) {
			apierrors.NotFound(w, "Объект не найден")
			return
		}
		h.logger.Error("Ошибка открытия объекта",
			slog.String("path", objectPath),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка чтения объекта")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("ETag", `"`+info.Checksum+`"`)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, "", info.CreatedAt, f)
}
