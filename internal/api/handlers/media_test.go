package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/publication-module/internal/storage/filestore"
)

func newTestMedia(t *testing.T) (*MediaHandler, *filestore.Store) {
	t.Helper()
	store, err := filestore.New(t.TempDir(), "https://media.test", "signing-key")
	if err != nil {
		t.Fatalf("ошибка создания хранилища: %v", err)
	}
	if err := store.Upload(context.Background(), "owner-1/a.png", []byte("png-bytes"), "image/png"); err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}
	return NewMediaHandler(store, testLogger()), store
}

func TestServePublic(t *testing.T) {
	h, _ := newTestMedia(t)

	rec := httptest.NewRecorder()
	h.ServePublic(rec, httptest.NewRequest(http.MethodGet, "/media/public/owner-1/a.png", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type: %s", ct)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "png-bytes" {
		t.Errorf("неверное содержимое: %q", body)
	}
}

func TestServePublic_NotFound(t *testing.T) {
	h, _ := newTestMedia(t)

	for _, path := range []string{"/media/public/owner-1/missing.png", "/media/public/../etc/passwd"} {
		rec := httptest.NewRecorder()
		h.ServePublic(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: ожидался 404, получен %d", path, rec.Code)
		}
	}
}

func TestServeSigned(t *testing.T) {
	h, store := newTestMedia(t)

	signed, err := store.SignedURL("owner-1/a.png", time.Hour)
	if err != nil {
		t.Fatalf("ошибка подписи: %v", err)
	}
	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("некорректный URL: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeSigned(rec, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}

	// Подпись другого объекта
	if err := store.Upload(context.Background(), "owner-1/b.png", []byte("b"), "image/png"); err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}
	other := strings.Replace(u.RequestURI(), "a.png", "b.png", 1)
	rec = httptest.NewRecorder()
	h.ServeSigned(rec, httptest.NewRequest(http.MethodGet, other, nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("чужая подпись: ожидался 403, получен %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeSigned(rec, httptest.NewRequest(http.MethodGet, "/media/signed/owner-1/a.png", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("без токена: ожидался 401, получен %d", rec.Code)
	}
}
