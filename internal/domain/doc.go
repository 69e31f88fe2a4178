// Package domain содержит доменные модели системы Cohort.
//
// Основные сущности:
//   - Account — учётная запись под автоматизацией (ключ, адрес, прокси)
//   - Proxy — сетевая идентичность, назначаемая аккаунту
//   - TaskResult — результат выполнения одной задачи
//   - RunnerMetrics — счётчики одного runner'а
//   - RunSummary — итог выполнения последовательности задач для аккаунта
//   - AggregateSummary — сводка по всему запуску fleet'а
//
// Модели не содержат бизнес-логики выполнения — только данные
// и переходы статусов. Выполнением занимаются пакеты runner
// и orchestrator.
package domain
