// Пакет media — приём изображений публикации: разбор data URL,
// загрузка в хранилище и получение ссылок для внешних платформ.
//
// Ошибка одного изображения не прерывает обработку остальных:
// она попадает в диагностику с указанием этапа (parse, upload,
// publicUrl, signedUrl). Запрос отклоняется, только если изображения
// были переданы и ни одно не обработано успешно.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// ErrAllImagesFailed — изображения переданы, но ни одно не обработано.
var ErrAllImagesFailed = errors.New("не удалось загрузить ни одного изображения")

// defaultExt — расширение объекта, если его нельзя взять из имени файла.
const defaultExt = "jpg"

// ObjectStorage — хранилище объектов для загруженных изображений.
type ObjectStorage interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) error
	PublicURL(objectPath string) (string, error)
	SignedURL(objectPath string, ttl time.Duration) (string, error)
}

// Ingester — этап приёма изображений.
type Ingester struct {
	storage   ObjectStorage
	signedTTL time.Duration
	maxBytes  int
	logger    *slog.Logger
}

// NewIngester создаёт Ingester.
// signedTTL — срок действия подписанных ссылок, maxBytes — предельный
// размер одного изображения после декодирования.
func NewIngester(storage ObjectStorage, signedTTL time.Duration, maxBytes int, logger *slog.Logger) *Ingester {
	return &Ingester{
		storage:   storage,
		signedTTL: signedTTL,
		maxBytes:  maxBytes,
		logger:    logger.With(slog.String("component", "media_ingester")),
	}
}

// slot — результат обработки одного изображения.
type slot struct {
	artifact    *model.UploadArtifact
	diagnostics []model.Diagnostic
}

// Ingest обрабатывает изображения владельца. Учитываются первые
// model.MaxImages изображений, на каждое следующее выдаётся диагностика
// этапа parse.
// Загрузки выполняются параллельно, порядок артефактов и диагностики
// соответствует порядку во входных данных.
//
// Результат возвращается всегда, в том числе вместе с ErrAllImagesFailed.
func (in *Ingester) Ingest(ctx context.Context, ownerID string, images []model.ImageInput) (model.IngestionResult, error) {
	if len(images) == 0 {
		return model.IngestionResult{}, nil
	}
	var overflow []model.ImageInput
	if len(images) > model.MaxImages {
		in.logger.Warn("Лишние изображения проигнорированы",
			slog.String("owner_id", ownerID),
			slog.Int("received", len(images)),
			slog.Int("limit", model.MaxImages),
		)
		overflow = images[model.MaxImages:]
		images = images[:model.MaxImages]
	}

	slots := make([]slot, len(images))

	var g errgroup.Group
	g.SetLimit(len(images))
	for i, img := range images {
		g.Go(func() error {
			slots[i] = in.processOne(ctx, ownerID, img)
			return nil
		})
	}
	_ = g.Wait() // ошибки изображений собираются в slots

	result := model.IngestionResult{}
	for _, s := range slots {
		result.Diagnostics = append(result.Diagnostics, s.diagnostics...)
		if s.artifact != nil {
			result.Artifacts = append(result.Artifacts, *s.artifact)
		}
	}
	for _, img := range overflow {
		name := img.Name
		if name == "" {
			name = "image"
		}
		result.Diagnostics = append(result.Diagnostics, model.Diagnostic{
			Name:   name,
			Reason: fmt.Sprintf("превышен лимит изображений (%d)", model.MaxImages),
			Stage:  model.StageParse,
		})
	}

	imagesTotal.WithLabelValues("success").Add(float64(len(result.Artifacts)))
	imagesTotal.WithLabelValues("failure").Add(float64(len(images) + len(overflow) - len(result.Artifacts)))

	if len(result.Artifacts) == 0 {
		in.logger.Warn("Все изображения отклонены",
			slog.String("owner_id", ownerID),
			slog.Int("count", len(images)),
		)
		return result, ErrAllImagesFailed
	}
	return result, nil
}

// processOne проводит изображение через все этапы.
func (in *Ingester) processOne(ctx context.Context, ownerID string, img model.ImageInput) slot {
	name := img.Name
	if name == "" {
		name = "image"
	}
	fail := func(stage model.Stage, err error) model.Diagnostic {
		in.logger.Warn("Ошибка обработки изображения",
			slog.String("owner_id", ownerID),
			slog.String("name", name),
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()),
		)
		return model.Diagnostic{Name: name, Reason: err.Error(), Stage: stage}
	}

	// 1. Разбор data URL
	d, err := parseDataURL(img.DataURL, img.Type, in.maxBytes)
	if err != nil {
		return slot{diagnostics: []model.Diagnostic{fail(model.StageParse, err)}}
	}

	// 2. Загрузка в хранилище
	objectPath := fmt.Sprintf("%s/%s.%s", ownerID, uuid.New().String(), extensionOf(img.Name))
	if err := in.storage.Upload(ctx, objectPath, d.data, d.mime); err != nil {
		return slot{diagnostics: []model.Diagnostic{fail(model.StageUpload, err)}}
	}

	artifact := &model.UploadArtifact{
		Name:     name,
		MimeType: d.mime,
		Path:     objectPath,
		Size:     len(d.data),
	}
	var diags []model.Diagnostic

	// 3. Постоянный публичный URL — ошибка не фатальна
	if publicURL, err := in.storage.PublicURL(objectPath); err != nil {
		diags = append(diags, fail(model.StagePublicURL, err))
	} else {
		artifact.DurableURL = publicURL
	}

	// 4. Подписанный URL для внешних платформ; при ошибке — постоянный URL
	signedURL, err := in.storage.SignedURL(objectPath, in.signedTTL)
	switch {
	case err == nil && signedURL != "":
		artifact.FetchableURL = signedURL
	case artifact.DurableURL != "":
		if err == nil {
			err = errors.New("хранилище вернуло пустую подписанную ссылку")
		}
		diags = append(diags, fail(model.StageSignedURL, err))
		artifact.FetchableURL = artifact.DurableURL
	default:
		if err == nil {
			err = errors.New("хранилище вернуло пустую подписанную ссылку")
		}
		// Нет ни одной внешне доступной ссылки — изображение исключается
		diags = append(diags, fail(model.StageSignedURL, err))
		return slot{diagnostics: diags}
	}

	return slot{artifact: artifact, diagnostics: diags}
}

// extensionOf возвращает расширение из имени файла (без точки, в нижнем
// регистре) или расширение по умолчанию.
func extensionOf(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" || len(ext) > 8 {
		return defaultExt
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultExt
		}
	}
	return ext
}
