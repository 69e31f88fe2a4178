// Package cli реализует инструмент командной строки Cohort.
//
// # Обзор
//
// CLI — утилита оператора: просмотр сохранённых сводок запусков и
// проверка файлов аккаунтов перед запуском. Запросов к платформе
// не делает.
//
// # Ключевые компоненты
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.Encoder с отступами) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: cohort summary list --json | jq .
//
// ## Commands
//
//   - summary list / show — сводки запусков; источник задаёт Store
//     (файловый каталог или PostgreSQL с флагом --db)
//   - accounts check      — валидация файла аккаунтов и ключей
package cli
