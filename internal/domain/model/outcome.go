package model

// ErrorKind — машиночитаемый вид ошибки канала.
type ErrorKind string

const (
	ErrKindNotConfigured      ErrorKind = "not_configured"
	ErrKindMissingImage       ErrorKind = "missing_image"
	ErrKindTokenRefreshFailed ErrorKind = "token_refresh_failed"
	ErrKindPublishFailed      ErrorKind = "publish_failed"
	ErrKindUnsupportedChannel ErrorKind = "unsupported_channel"
	ErrKindInternal           ErrorKind = "internal_error"
)

// Outcome — нормализованный результат публикации в один канал.
type Outcome struct {
	OK          bool           `json:"ok"`
	ExternalID  string         `json:"external_id,omitempty"`
	ExternalURL string         `json:"external_url,omitempty"`
	Error       ErrorKind      `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
	Diagnostics map[string]any `json:"diagnostics,omitempty"`
}

// Succeeded создаёт успешный результат.
func Succeeded(externalID, externalURL string) Outcome {
	return Outcome{OK: true, ExternalID: externalID, ExternalURL: externalURL}
}

// Failed создаёт неуспешный результат.
func Failed(kind ErrorKind, message string) Outcome {
	return Outcome{OK: false, Error: kind, Message: message}
}

// LastError возвращает текст ошибки для сохранения в доставке.
// Для неуспешного результата всегда не пустой.
func (o Outcome) LastError() string {
	if o.OK {
		return ""
	}
	kind := o.Error
	if kind == "" {
		kind = ErrKindInternal
	}
	if o.Message == "" {
		return string(kind)
	}
	return string(kind) + ": " + o.Message
}
