// Package config загружает конфигурацию запуска.
//
// Источники:
//   - JSON-файл конфигурации (--config / COHORT_CONFIG)
//   - файл аккаунтов (JSON, путь указывается в конфигурации)
//   - файл прокси (по строке на прокси: host:port[:user:pass])
//
// Секреты (ключ капча-сервиса, DSN базы) могут переопределяться
// переменными окружения и не обязаны находиться в файле.
package config
