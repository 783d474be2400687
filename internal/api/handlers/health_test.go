package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	status, message string
}

func (s stubChecker) CheckReady() (string, string) {
	return s.status, s.message
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil, nil).HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	var resp healthLiveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	if resp.Service != "publication-module" || resp.Status != "ok" {
		t.Errorf("неверный ответ: %+v", resp)
	}
}

func TestHealthReady(t *testing.T) {
	ok := stubChecker{"ok", "доступен"}
	tests := []struct {
		name       string
		pg, media  ReadinessChecker
		wantCode   int
		wantStatus string
	}{
		{"всё доступно", ok, ok, http.StatusOK, "ok"},
		{"postgres fail", stubChecker{"fail", "connection refused"}, ok, http.StatusServiceUnavailable, "fail"},
		{"медиа недоступно", ok, stubChecker{"fail", "read-only file system"}, http.StatusServiceUnavailable, "fail"},
		{"зависшие доставки", stubChecker{"degraded", "2 доставки в очереди"}, ok, http.StatusOK, "degraded"},
		{"checker не задан", nil, ok, http.StatusServiceUnavailable, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.pg, tt.media).HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tt.wantCode {
				t.Errorf("ожидался %d, получен %d", tt.wantCode, rec.Code)
			}
			var resp healthReadyResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("ошибка декодирования: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, ожидался %q", resp.Status, tt.wantStatus)
			}
		})
	}
}

func TestHealthReady_ReportsMediaCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	h := NewHealthHandler(stubChecker{"ok", "PostgreSQL доступен"}, stubChecker{"fail", "нет места"})
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp healthReadyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	if resp.Checks.MediaStorage.Status != "fail" || resp.Checks.MediaStorage.Message != "нет места" {
		t.Errorf("media_storage = %+v", resp.Checks.MediaStorage)
	}
	if resp.Checks.PostgreSQL.Status != "ok" {
		t.Errorf("postgresql = %+v", resp.Checks.PostgreSQL)
	}
}
