package model

// Stage — этап обработки изображения, на котором возникла ошибка.
type Stage string

const (
	StageParse     Stage = "parse"
	StageUpload    Stage = "upload"
	StagePublicURL Stage = "publicUrl"
	StageSignedURL Stage = "signedUrl"
)

// ImageInput — изображение из запроса в виде data URL.
type ImageInput struct {
	Name    string
	Type    string
	DataURL string
}

// Diagnostic — ошибка обработки одного изображения.
// Возвращается клиенту в uploadErrors.
type Diagnostic struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Stage  Stage  `json:"stage"`
}

// UploadArtifact — результат обработки одного изображения.
type UploadArtifact struct {
	// Name — исходное имя файла
	Name string
	// MimeType — MIME-тип из data URL (или заявленный клиентом)
	MimeType string
	// Path — путь объекта в хранилище
	Path string
	// Size — размер декодированных данных
	Size int
	// DurableURL — постоянный публичный URL (пустой, если не получен)
	DurableURL string
	// FetchableURL — URL, по которому внешняя платформа может скачать изображение
	FetchableURL string
}

// IngestionResult — итог обработки всех изображений запроса.
type IngestionResult struct {
	// Artifacts — успешно обработанные изображения в порядке запроса
	Artifacts []UploadArtifact
	// Diagnostics — ошибки по отдельным изображениям в порядке запроса
	Diagnostics []Diagnostic
}

// StoredURLs возвращает URL изображений для сохранения в публикации:
// постоянный URL, а если он не получен — внешне доступный.
func (r IngestionResult) StoredURLs() []string {
	urls := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		switch {
		case a.DurableURL != "":
			urls = append(urls, a.DurableURL)
		case a.FetchableURL != "":
			urls = append(urls, a.FetchableURL)
		}
	}
	return urls
}

// FetchableURLs возвращает внешне доступные URL (не более MaxImages).
func (r IngestionResult) FetchableURLs() []string {
	urls := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		if a.FetchableURL == "" {
			continue
		}
		urls = append(urls, a.FetchableURL)
		if len(urls) == MaxImages {
			break
		}
	}
	return urls
}
