package openapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	apierrors "github.com/bigkaa/goartstore/publication-module/internal/api/errors"
)

// Validator — проверка входящих запросов по OpenAPI-контракту.
type Validator struct {
	router routers.Router
	logger *slog.Logger
}

// NewValidator создаёт проверку запросов по спецификации doc.
func NewValidator(doc *openapi3.T, logger *slog.Logger) (*Validator, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	return &Validator{
		router: router,
		logger: logger.With(slog.String("component", "openapi_validator")),
	}, nil
}

// Middleware возвращает middleware проверки запросов. Запросы к путям,
// которых нет в контракте, пропускаются без проверки.
// Аутентификация проверяется отдельным middleware.
func (v *Validator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := v.router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				v.logger.Debug("Запрос не соответствует контракту",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.ValidationError(w, validationMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validationMessage возвращает краткое описание нарушения контракта.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		var schemaErr *openapi3.SchemaError
		if errors.As(reqErr.Err, &schemaErr) {
			return "Запрос не соответствует контракту: " + schemaErr.Reason
		}
		if reqErr.Parameter != nil {
			return "Некорректный параметр " + reqErr.Parameter.Name
		}
		if reqErr.RequestBody != nil {
			return "Некорректное тело запроса"
		}
	}
	return "Запрос не соответствует контракту"
}
