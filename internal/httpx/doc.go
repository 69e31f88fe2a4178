// Package httpx реализует устойчивый HTTP-клиент для автоматизации
// аккаунтов.
//
// Клиент выполняет один логический запрос надёжно, несмотря на
// нестабильный транспорт и противоречивые ожидания сервера к формату
// заголовков:
//
//   - sliding-window rate limiting перед каждым запросом
//   - retry с экспоненциальным backoff при транспортных ошибках
//   - ротация TLS fingerprint-профиля при сбое транспорта
//   - самокоррекция кодирования заголовков: сервер, отклонивший
//     structured-формат, запоминается per-endpoint, и последующие
//     запросы сразу используют flat-формат (и наоборот)
//
// Каждый runner владеет собственным экземпляром Client — память
// кодирования и пул fingerprint'ов не разделяются между аккаунтами.
// Жизненный цикл нижележащих транспортов учитывается общим
// реестром с подсчётом ссылок (см. transport.go).
package httpx
