package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow — ширина скользящего окна по умолчанию.
const DefaultWindow = time.Minute

// Limiter — sliding-window ограничитель для одного клиента.
//
// Хранит упорядоченные timestamps выпущенных запросов. При каждом
// Admit устаревшие timestamps отбрасываются; если оставшихся >= limit,
// вызов приостанавливается до истечения самого старого timestamp'а
// и перепроверяет окно заново.
type Limiter struct {
	mu         sync.Mutex
	timestamps []time.Time

	limit  int
	window time.Duration

	// now подменяется в тестах.
	now func() time.Time
}

// New создаёт Limiter с лимитом limit запросов за окно window.
// window <= 0 означает DefaultWindow.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Admit блокирует, пока очередной запрос не уложится в окно.
//
// Возвращает ошибку только при отмене контекста. Порядок допуска —
// FIFO по времени прихода, без дополнительных гарантий честности.
func (l *Limiter) Admit(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.timestamps) < l.limit {
			l.timestamps = append(l.timestamps, now)
			l.mu.Unlock()
			return nil
		}

		// Ждём истечения самого старого timestamp'а и перепроверяем:
		// окно могло быть занято конкурентным вызовом.
		wait := l.timestamps[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Pending возвращает количество timestamps в текущем окне.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.timestamps)
}

// prune отбрасывает timestamps старше окна. Вызывается под mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}
