// Package scheduler реализует расписание повторных запусков.
//
// Scheduler вычисляет следующее время запуска по cron-выражению
// и вызывает переданную функцию запуска. Запуски не перекрываются:
// следующее время вычисляется от завершения предыдущего запуска.
//
// Структура:
//   - scheduler.go — цикл ожидания и вызова запусков
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    CronExpr: "0 9 * * *",
//	    Run:      runFleet,
//	    Logger:   logger,
//	})
//	if err != nil { ... }
//	sched.Start(ctx) // блокирует до отмены контекста
package scheduler
