// Package repo предоставляет персистенцию сводок запусков.
//
// Структура:
//   - db.go           — подключение к PostgreSQL (pgxpool)
//   - summary_repo.go — сводки запусков в PostgreSQL (JSONB)
//   - file_store.go   — сводки запусков в файловом каталоге
//   - errors.go       — общие ошибки репозиториев
//
// Обе реализации персистируют сводку с ключом по времени запуска
// и взаимозаменяемы для оркестратора.
package repo
