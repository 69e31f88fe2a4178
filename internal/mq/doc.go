// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий запусков
//
// Поток событий односторонний: runner публикует события завершения,
// внешние системы (нотификации, аналитика) потребляют их.
//
// Типы сообщений:
//   - account.completed — итог одного аккаунта
//   - run.completed     — сводка всего запуска
//
// Exchange:
//   - cohort.fleet — события fleet-запусков
package mq
