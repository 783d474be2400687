// health.go — обработчики health endpoints Publication Module.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (PostgreSQL, хранилище медиа)
// /metrics — Prometheus метрики
package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/goartstore/publication-module/internal/config"
)

const serviceName = "publication-module"

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status, message string)
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	pgChecker    ReadinessChecker
	mediaChecker ReadinessChecker
	promHandler  http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// Незаданная проверка считается проваленной.
func NewHealthHandler(pgChecker, mediaChecker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		pgChecker:    pgChecker,
		mediaChecker: mediaChecker,
		promHandler:  promhttp.Handler(),
	}
}

type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

type healthReadyResponse struct {
	healthLiveResponse
	Checks struct {
		PostgreSQL   healthCheckResult `json:"postgresql"`
		MediaStorage healthCheckResult `json:"media_storage"`
	} `json:"checks"`
}

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// HealthLive — liveness probe.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newLiveResponse(statusOK))
}

// HealthReady — readiness probe: PostgreSQL и хранилище медиа.
// Итог — худший из статусов; fail даёт 503, degraded остаётся 200.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthReadyResponse{}
	resp.Checks.PostgreSQL = runCheck(h.pgChecker)
	resp.Checks.MediaStorage = runCheck(h.mediaChecker)

	status := worstStatus(resp.Checks.PostgreSQL.Status, resp.Checks.MediaStorage.Status)
	resp.healthLiveResponse = newLiveResponse(status)

	code := http.StatusOK
	if status == statusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

func newLiveResponse(status string) healthLiveResponse {
	return healthLiveResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}
}

func runCheck(c ReadinessChecker) healthCheckResult {
	if c == nil {
		return healthCheckResult{Status: statusFail, Message: "не инициализирован"}
	}
	status, msg := c.CheckReady()
	return healthCheckResult{Status: status, Message: msg}
}

func worstStatus(statuses ...string) string {
	worst := statusOK
	for _, s := range statuses {
		switch {
		case s == statusFail:
			return statusFail
		case s == statusDegraded:
			worst = statusDegraded
		case s != statusOK:
			// неизвестный статус считаем деградацией
			worst = statusDegraded
		}
	}
	return worst
}
