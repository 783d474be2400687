package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики публикаций.
var (
	publicationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pm_publications_total",
		Help: "Количество запросов на публикацию по результату.",
	}, []string{"result"})

	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pm_deliveries_total",
		Help: "Количество доставок по каналу и итоговому статусу.",
	}, []string{"channel", "status"})

	idempotencyHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_idempotency_cache_hits_total",
		Help: "Попадания в кэш ключей идемпотентности.",
	})
	idempotencyMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_idempotency_cache_misses_total",
		Help: "Промахи кэша ключей идемпотентности.",
	})
)

// Значения метки result для pm_publications_total.
const (
	resultPublished    = "published"
	resultReplayed     = "replayed"
	resultInvalid      = "validation_error"
	resultUploadFailed = "upload_failed"
	resultError        = "error"
)
