package media

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// imagesTotal — количество обработанных изображений по результату (success, failure).
var imagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pm_media_images_total",
		Help: "Количество обработанных изображений публикаций",
	},
	[]string{"result"},
)
