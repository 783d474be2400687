package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/publication-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
	"github.com/bigkaa/goartstore/publication-module/internal/service"
)

type fakeService struct {
	gotReq service.PublishRequest
	result *service.PublishResult
	err    error
	view   *service.PublicationView
	getErr error
	gotGet [2]string
}

func (f *fakeService) Publish(_ context.Context, req service.PublishRequest) (*service.PublishResult, error) {
	f.gotReq = req
	return f.result, f.err
}

func (f *fakeService) Get(_ context.Context, ownerID, id string) (*service.PublicationView, error) {
	f.gotGet = [2]string{ownerID, id}
	return f.view, f.getErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withOwner(r *http.Request, owner string) *http.Request {
	return r.WithContext(middleware.WithOwner(r.Context(), owner))
}

func postPublication(t *testing.T, h *APIHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/publications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.CreatePublication(rec, withOwner(req, "owner-1"))
	return rec
}

func TestCreatePublication_Success(t *testing.T) {
	svc := &fakeService{result: &service.PublishResult{
		Publication:     &model.Publication{ID: "pub-1", Images: []string{"https://m/a.jpg"}},
		PublishableURLs: []string{"https://m/s/a.jpg"},
		Results: map[model.Channel]model.Outcome{
			model.ChannelSocialPage:  model.Succeeded("fb-1", "https://fb/1"),
			model.ChannelSocialPhoto: model.Failed(model.ErrKindMissingImage, "нужно изображение"),
		},
	}}
	h := NewAPIHandler(svc, testLogger())

	body := `{"channels":["social_page","social_photo"],"post":{"title":"Promo","content":"10% off","cta":"Book now","hashtags":["#a"]},"idea":"i","images":[{"name":"a.jpg","type":"image/jpeg","dataUrl":"data:image/jpeg;base64,AAAA"}]}`
	rec := postPublication(t, h, body, map[string]string{IdempotencyKeyHeader: "k-1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}

	if svc.gotReq.OwnerID != "owner-1" || svc.gotReq.IdempotencyKey != "k-1" {
		t.Errorf("неверный запрос к сервису: %+v", svc.gotReq)
	}
	if svc.gotReq.Content != "10% off" || len(svc.gotReq.Images) != 1 || svc.gotReq.Images[0].DataURL == "" {
		t.Errorf("поля запроса не переданы: %+v", svc.gotReq)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	if resp["ok"] != true || resp["publication_id"] != "pub-1" {
		t.Errorf("неверный ответ: %v", resp)
	}
	if errs, ok := resp["uploadErrors"].([]any); !ok || len(errs) != 0 {
		t.Errorf("uploadErrors должен быть пустым массивом: %v", resp["uploadErrors"])
	}
	results := resp["results"].(map[string]any)
	photo := results["social_photo"].(map[string]any)
	if photo["ok"] != false || photo["error"] != "missing_image" {
		t.Errorf("неверный результат social_photo: %v", photo)
	}
	if _, present := resp["replayed"]; present {
		t.Error("replayed не должен присутствовать для нового запроса")
	}
}

func TestCreatePublication_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"некорректный JSON", `{"channels":`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"ошибка валидации", `{"channels":[],"post":{"content":"x"}}`,
			errors.Join(service.ErrValidation, errors.New("нет каналов")), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"изображения не загружены", `{"channels":["social_page"],"post":{"content":"x"}}`,
			&service.UploadFailedError{Diagnostics: []model.Diagnostic{{Name: "a", Reason: "r", Stage: model.StageParse}}},
			http.StatusUnprocessableEntity, "UPLOAD_FAILED"},
		{"ошибка хранения", `{"channels":["social_page"],"post":{"content":"x"}}`,
			errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAPIHandler(&fakeService{err: tt.err}, testLogger())
			rec := postPublication(t, h, tt.body, nil)

			if rec.Code != tt.wantCode {
				t.Fatalf("ожидался %d, получен %d", tt.wantCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantErr) {
				t.Errorf("ожидался код %s: %s", tt.wantErr, rec.Body.String())
			}
		})
	}
}

func TestCreatePublication_UploadErrorsInBody(t *testing.T) {
	h := NewAPIHandler(&fakeService{err: &service.UploadFailedError{Diagnostics: []model.Diagnostic{
		{Name: "a.png", Reason: "bad", Stage: model.StageUpload},
	}}}, testLogger())

	rec := postPublication(t, h, `{"channels":["social_page"],"post":{"content":"x"}}`, nil)

	var resp struct {
		UploadErrors []model.Diagnostic `json:"uploadErrors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	if len(resp.UploadErrors) != 1 || resp.UploadErrors[0].Stage != model.StageUpload {
		t.Errorf("неверные uploadErrors: %+v", resp.UploadErrors)
	}
}

func TestCreatePublication_NoOwner(t *testing.T) {
	h := NewAPIHandler(&fakeService{}, testLogger())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/publications", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.CreatePublication(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался 401, получен %d", rec.Code)
	}
}

func TestGetPublication(t *testing.T) {
	id := uuid.New()
	extID := "fb-1"
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &fakeService{view: &service.PublicationView{
		Publication: &model.Publication{ID: id.String(), Body: "текст", CreatedAt: at},
		Deliveries: []*model.Delivery{
			{ID: "d-1", Channel: model.ChannelSocialPage, Status: model.DeliveryDelivered, ExternalID: &extID, DeliveredAt: &at},
		},
	}}
	h := NewAPIHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/publications/"+id.String(), nil)
	rec := httptest.NewRecorder()
	h.GetPublication(rec, withOwner(req, "owner-1"), id)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	if svc.gotGet != [2]string{"owner-1", id.String()} {
		t.Errorf("неверные параметры сервиса: %v", svc.gotGet)
	}

	var resp publicationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	if resp.Publication.Content != "текст" || len(resp.Deliveries) != 1 {
		t.Errorf("неверный ответ: %+v", resp)
	}
	d := resp.Deliveries[0]
	if d.Status != "delivered" || d.ExternalID == nil || *d.ExternalID != "fb-1" || d.DeliveredAt == nil {
		t.Errorf("неверная доставка: %+v", d)
	}
}

func TestGetPublication_NotFound(t *testing.T) {
	h := NewAPIHandler(&fakeService{getErr: service.ErrNotFound}, testLogger())

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/publications/"+id.String(), nil)
	rec := httptest.NewRecorder()
	h.GetPublication(rec, withOwner(req, "owner-1"), id)

	if rec.Code != http.StatusNotFound {
		t.Errorf("ожидался 404, получен %d", rec.Code)
	}
}
