// Пакет filestore — хранилище медиа-объектов на диске.
// Запись атомарная (temp → fsync → rename) с подсчётом SHA-256,
// публичные ссылки и подписанные ссылки (JWT HS256) на объекты.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Ошибки хранилища.
var (
	// ErrObjectNotFound — объект отсутствует.
	ErrObjectNotFound = errors.New("объект не найден")
	// ErrInvalidPath — путь объекта недопустим.
	ErrInvalidPath = errors.New("недопустимый путь объекта")
	// ErrInvalidSignature — подпись ссылки недействительна или истекла.
	ErrInvalidSignature = errors.New("недействительная подпись ссылки")
)

// Префиксы маршрутов, по которым отдаются объекты.
const (
	PublicRoutePrefix = "/media/public/"
	SignedRoutePrefix = "/media/signed/"
)

// metaSuffix — суффикс файла метаданных рядом с объектом.
const metaSuffix = ".meta.json"

// ObjectInfo — метаданные сохранённого объекта.
type ObjectInfo struct {
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store — хранилище медиа-объектов на локальном диске.
type Store struct {
	// dataDir — корневая директория объектов
	dataDir string
	// baseURL — внешний URL сервиса, без завершающего слэша
	baseURL string
	// signingKey — ключ HMAC для подписанных ссылок
	signingKey []byte
}

// New создаёт Store. Создаёт директорию данных, если она не существует.
func New(dataDir, baseURL, signingKey string) (*Store, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("ключ подписи ссылок не задан")
	}
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("некорректный базовый URL медиа: %q", baseURL)
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &Store{
		dataDir:    dataDir,
		baseURL:    strings.TrimRight(baseURL, "/"),
		signingKey: []byte(signingKey),
	}, nil
}

// DataDir возвращает путь к директории данных.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Upload сохраняет объект по относительному пути objectPath.
// Существующий объект перезаписывается.
func (s *Store) Upload(ctx context.Context, objectPath string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	clean, err := cleanPath(objectPath)
	if err != nil {
		return err
	}

	fullPath := filepath.Join(s.dataDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("ошибка создания директории объекта: %w", err)
	}

	if err := writeAtomic(fullPath, data); err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	info := ObjectInfo{
		Path:        clean,
		ContentType: contentType,
		Size:        int64(len(data)),
		Checksum:    hex.EncodeToString(sum[:]),
		CreatedAt:   time.Now().UTC(),
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}
	if err := writeAtomic(fullPath+metaSuffix, meta); err != nil {
		os.Remove(fullPath)
		return err
	}
	return nil
}

// Stat возвращает метаданные объекта.
func (s *Store) Stat(objectPath string) (*ObjectInfo, error) {
	clean, err := cleanPath(objectPath)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(s.dataDir, filepath.FromSlash(clean)) + metaSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("ошибка чтения метаданных %s: %w", clean, err)
	}

	info := &ObjectInfo{}
	if err := json.Unmarshal(raw, info); err != nil {
		return nil, fmt.Errorf("повреждённые метаданные %s: %w", clean, err)
	}
	return info, nil
}

// Open открывает объект для чтения. Вызывающий код обязан закрыть файл.
func (s *Store) Open(objectPath string) (*os.File, *ObjectInfo, error) {
	info, err := s.Stat(objectPath)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.dataDir, filepath.FromSlash(info.Path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("ошибка открытия объекта %s: %w", info.Path, err)
	}
	return f, info, nil
}

// PublicURL возвращает постоянный публичный URL существующего объекта.
func (s *Store) PublicURL(objectPath string) (string, error) {
	info, err := s.Stat(objectPath)
	if err != nil {
		return "", err
	}
	return s.baseURL + PublicRoutePrefix + escapePath(info.Path), nil
}

// signedClaims — claims подписанной ссылки. Subject — путь объекта.
type signedClaims struct {
	jwt.RegisteredClaims
}

// SignedURL возвращает ссылку на объект, действительную ttl.
func (s *Store) SignedURL(objectPath string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("некорректный срок действия ссылки: %v", ttl)
	}

	info, err := s.Stat(objectPath)
	if err != nil {
		return "", err
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, signedClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   info.Path,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи ссылки: %w", err)
	}

	return s.baseURL + SignedRoutePrefix + escapePath(info.Path) + "?token=" + url.QueryEscape(signed), nil
}

// VerifySignature проверяет токен подписанной ссылки для пути объекта.
func (s *Store) VerifySignature(objectPath, token string) error {
	clean, err := cleanPath(objectPath)
	if err != nil {
		return err
	}

	claims := &signedClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if claims.Subject != clean {
		return fmt.Errorf("%w: ссылка выдана для другого объекта", ErrInvalidSignature)
	}
	return nil
}

// CheckReady проверяет, что в директорию данных можно писать.
// Статус в формате readiness: "ok" или "fail".
func (s *Store) CheckReady() (status, message string) {
	f, err := os.CreateTemp(s.dataDir, ".ready-*")
	if err != nil {
		return "fail", fmt.Sprintf("директория медиа недоступна для записи: %v", err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return "ok", "директория медиа доступна"
}

// writeAtomic записывает данные через временный файл и rename.
func writeAtomic(fullPath string, data []byte) error {
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

// cleanPath нормализует относительный путь объекта и запрещает выход
// за пределы директории данных.
func cleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") ||
		strings.HasSuffix(clean, metaSuffix) || strings.HasSuffix(clean, ".tmp") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return clean, nil
}

// escapePath экранирует сегменты пути для URL.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
