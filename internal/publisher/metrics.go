package publisher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

var (
	// dispatchTotal — результаты публикаций по каналам (result: ok или вид ошибки).
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_channel_dispatch_total",
			Help: "Количество публикаций в каналы по результату",
		},
		[]string{"channel", "result"},
	)

	// dispatchDuration — длительность публикации в канал.
	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pm_channel_dispatch_duration_seconds",
			Help:    "Длительность публикации в канал в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)
)

func observeDispatch(channel model.Channel, out model.Outcome, d time.Duration) {
	// Все неизвестные каналы — под одной меткой
	label := string(channel)
	if !channel.Valid() {
		label = "unknown"
	}
	result := "ok"
	if !out.OK {
		result = string(out.Error)
	}
	dispatchTotal.WithLabelValues(label, result).Inc()
	dispatchDuration.WithLabelValues(label).Observe(d.Seconds())
}
