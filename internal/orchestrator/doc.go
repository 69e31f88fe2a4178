// Package orchestrator управляет выполнением fleet'а аккаунтов.
//
// Orchestrator — центральный компонент системы, который:
//   - Загружает аккаунты и назначает прокси из общего пула
//   - Запускает пул воркеров с ограниченным параллелизмом
//   - Создаёт per-account Runner с собственным HTTP-клиентом и signer'ом
//   - Агрегирует итоги аккаунтов в сводку запуска
//   - Персистирует сводку и публикует события завершения
//   - Выполняет graceful shutdown с ограниченным периодом ожидания
//
// Ошибка одного аккаунта никогда не прерывает остальные: итог
// каждого runner'а записывается в сводку независимо.
package orchestrator
