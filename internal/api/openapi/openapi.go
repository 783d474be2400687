// Пакет openapi — OpenAPI-контракт Publication Module: встроенная
// спецификация, проверка запросов по контракту и маршруты API.
package openapi

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/goartstore/publication-module/internal/api/errors"
)

//go:embed openapi.yaml
var specYAML []byte

// Load загружает и проверяет встроенную спецификацию.
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI спецификации: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("невалидная OpenAPI спецификация: %w", err)
	}
	return doc, nil
}

// ServerInterface — операции API публикаций.
type ServerInterface interface {
	// CreatePublication — POST /api/v1/publications
	CreatePublication(w http.ResponseWriter, r *http.Request)
	// GetPublication — GET /api/v1/publications/{id}
	GetPublication(w http.ResponseWriter, r *http.Request, id openapi_types.UUID)
}

// RegisterHandlers монтирует операции API в router.
func RegisterHandlers(r chi.Router, si ServerInterface) {
	r.Post("/api/v1/publications", si.CreatePublication)
	r.Get("/api/v1/publications/{id}", func(w http.ResponseWriter, req *http.Request) {
		var id openapi_types.UUID
		err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(req, "id"), &id,
			runtime.BindStyledParameterOptions{
				ParamLocation: runtime.ParamLocationPath,
				Explode:       false,
				Required:      true,
			})
		if err != nil {
			apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр id: %v", err))
			return
		}
		si.GetPublication(w, req, id)
	})
}
