// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Runner экспортирует метрики на /metrics endpoint,
// формат логов единый для всех бинарников.
package telemetry
