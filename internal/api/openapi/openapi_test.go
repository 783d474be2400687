package openapi

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

type recordingServer struct {
	created int
	gotID   openapi_types.UUID
}

func (s *recordingServer) CreatePublication(w http.ResponseWriter, _ *http.Request) {
	s.created++
	w.WriteHeader(http.StatusOK)
}

func (s *recordingServer) GetPublication(w http.ResponseWriter, _ *http.Request, id openapi_types.UUID) {
	s.gotID = id
	w.WriteHeader(http.StatusOK)
}

func newTestRouter(t *testing.T) (http.Handler, *recordingServer) {
	t.Helper()
	doc, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки спецификации: %v", err)
	}
	v, err := NewValidator(doc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("ошибка создания валидатора: %v", err)
	}

	srv := &recordingServer{}
	r := chi.NewRouter()
	r.Use(v.Middleware())
	RegisterHandlers(r, srv)
	return r, srv
}

func TestLoad(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("спецификация должна быть валидной: %v", err)
	}
	if doc.Paths.Find("/api/v1/publications") == nil {
		t.Error("нет пути /api/v1/publications")
	}
}

func TestValidator_ValidRequest(t *testing.T) {
	router, srv := newTestRouter(t)

	body := `{"channels":["social_page"],"post":{"title":"Promo","content":"10% off"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/publications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	if srv.created != 1 {
		t.Error("обработчик должен быть вызван")
	}
}

func TestValidator_ContractViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"нет post", `{"channels":["social_page"]}`},
		{"channels не массив", `{"channels":"social_page","post":{"content":"x"}}`},
		{"некорректный JSON", `{"channels":[`},
		{"изображение без dataUrl", `{"channels":["social_page"],"post":{"content":"x"},"images":[{"name":"a.png"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, srv := newTestRouter(t)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/publications", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("ожидался 400, получен %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
				t.Errorf("ожидался код VALIDATION_ERROR: %s", rec.Body.String())
			}
			if srv.created != 0 {
				t.Error("обработчик не должен вызываться")
			}
		})
	}
}

func TestGetPublication_BindsUUID(t *testing.T) {
	router, srv := newTestRouter(t)

	id := "0b7e6c52-6f1a-4f0e-9d3c-2a1b4c5d6e7f"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/publications/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	if srv.gotID.String() != id {
		t.Errorf("id: ожидался %s, получен %s", id, srv.gotID.String())
	}
}

func TestGetPublication_InvalidUUID(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/publications/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ожидался 400, получен %d", rec.Code)
	}
}
