// Package runner выполняет последовательность задач одного аккаунта.
//
// # Обзор
//
// Runner — изолированная единица выполнения: один экземпляр на
// аккаунт, задачи строго последовательны. Runner отвечает за:
//
//   - начальную рандомизированную задержку (stagger) для
//     рассинхронизации аккаунтов
//   - per-task retry с экспоненциальным backoff
//   - circuit breaker по подряд идущим ошибкам с cooldown'ом
//   - паузы между задачами (фиксированные или из диапазона)
//   - немедленный abort последовательности при фатальной ошибке
//
// Ошибки обработчиков всегда перехватываются и превращаются в
// failed-результаты — наружу к оркестратору они не распространяются.
//
// # Статусы
//
//	IDLE → RUNNING → COMPLETED | FAILED | ABORTED
//
// Терминальный статус достигается ровно один раз — после
// исчерпания последовательности или abort'а.
//
// # Обработчики
//
// Задача — имя, связанное с обработчиком в Registry:
//
//	type Handler func(ctx context.Context, rc *Context) (any, error)
//
// Обработчики получают Context с клиентом, signer'ом и solver'ом
// капчи и скользящим состоянием (например, токеном авторизации).
package runner
