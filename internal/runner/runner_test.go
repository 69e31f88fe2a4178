package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shaiso/Cohort/internal/captcha"
	"github.com/shaiso/Cohort/internal/domain"
)

func testAccount() domain.Account {
	return domain.Account{Address: "0xAb01", Label: "test"}
}

func fastConfig(registry *Registry) Config {
	return Config{
		Registry:             registry,
		MaxRetries:           3,
		InitialRetryDelay:    time.Millisecond,
		MaxConsecutiveErrors: 2,
		CooldownPeriod:       50 * time.Millisecond,
	}
}

func TestRunner_AllTasksCompleted(t *testing.T) {
	registry := NewRegistry()
	registry.Register("a", func(_ context.Context, _ *Context) (any, error) {
		return "a-done", nil
	})
	registry.Register("b", func(_ context.Context, _ *Context) (any, error) {
		return "b-done", nil
	})

	r := New(testAccount(), fastConfig(registry))
	if r.Status() != domain.RunnerStatusIdle {
		t.Fatalf("new runner must be IDLE, got %s", r.Status())
	}

	summary := r.Run(t.Context(), []string{"a", "b"})

	if summary.Status != domain.RunnerStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", summary.Status)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(summary.Results))
	}
	// Результаты записаны в порядке последовательности.
	if summary.Results[0].Name != "a" || summary.Results[1].Name != "b" {
		t.Errorf("results out of order: %v", summary.Results)
	}
	if summary.Metrics.TasksCompleted != 2 || summary.Metrics.TasksFailed != 0 {
		t.Errorf("unexpected metrics: %+v", summary.Metrics)
	}
}

func TestRunner_RetryThenSuccess(t *testing.T) {
	// Задача b падает дважды, затем успешна (maxRetries=3):
	// итог COMPLETED с retries=2 в результате и метриках.
	attempts := 0
	registry := NewRegistry()
	registry.Register("a", func(_ context.Context, _ *Context) (any, error) {
		return nil, nil
	})
	registry.Register("b", func(_ context.Context, _ *Context) (any, error) {
		attempts++
		if attempts <= 2 {
			return nil, fmt.Errorf("%w: flaky", ErrHandler)
		}
		return "ok", nil
	})

	r := New(testAccount(), fastConfig(registry))
	summary := r.Run(t.Context(), []string{"a", "b"})

	if summary.Status != domain.RunnerStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", summary.Status)
	}

	b := summary.Result("b")
	if b == nil {
		t.Fatal("result for b must exist")
	}
	if b.Status != domain.TaskStatusCompleted {
		t.Fatalf("expected b COMPLETED, got %s", b.Status)
	}
	if b.Retries != 2 {
		t.Errorf("expected 2 retries for b, got %d", b.Retries)
	}
	if summary.Metrics.Retries != 2 {
		t.Errorf("expected 2 retries in metrics, got %d", summary.Metrics.Retries)
	}
}

func TestRunner_FailedTaskRecordedNotPropagated(t *testing.T) {
	registry := NewRegistry()
	registry.Register("bad", func(_ context.Context, _ *Context) (any, error) {
		return nil, fmt.Errorf("%w: always", ErrHandler)
	})
	registry.Register("good", func(_ context.Context, _ *Context) (any, error) {
		return nil, nil
	})

	cfg := fastConfig(registry)
	cfg.MaxConsecutiveErrors = 5 // breaker не срабатывает
	r := New(testAccount(), cfg)

	summary := r.Run(t.Context(), []string{"bad", "good"})

	if summary.Status != domain.RunnerStatusFailed {
		t.Fatalf("expected FAILED, got %s", summary.Status)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("both tasks must have results, got %d", len(summary.Results))
	}
	bad := summary.Result("bad")
	if bad.Status != domain.TaskStatusFailed || bad.Error == "" {
		t.Errorf("failed result must carry the error, got %+v", bad)
	}
	if bad.Retries != 2 {
		t.Errorf("expected maxRetries-1 retries, got %d", bad.Retries)
	}
	if summary.Result("good").Status != domain.TaskStatusCompleted {
		t.Error("sequence must continue after a non-fatal failure")
	}
}

func TestRunner_CircuitBreakerCooldown(t *testing.T) {
	// После ровно maxConsecutiveErrors подряд идущих ошибок runner
	// обязан проспать >= cooldownPeriod и обнулить счётчик.
	registry := NewRegistry()
	registry.Register("fail", func(_ context.Context, _ *Context) (any, error) {
		return nil, fmt.Errorf("%w: boom", ErrHandler)
	})
	registry.Register("ok", func(_ context.Context, _ *Context) (any, error) {
		return nil, nil
	})

	cfg := fastConfig(registry)
	cfg.MaxRetries = 1
	cfg.MaxConsecutiveErrors = 2
	cfg.CooldownPeriod = 120 * time.Millisecond
	r := New(testAccount(), cfg)

	start := time.Now()
	summary := r.Run(t.Context(), []string{"fail", "fail", "ok"})
	elapsed := time.Since(start)

	if elapsed < cfg.CooldownPeriod {
		t.Errorf("breaker must sleep >= cooldown, elapsed %v", elapsed)
	}
	if r.ConsecutiveFailures() != 0 {
		t.Errorf("counter must be reset after cooldown, got %d", r.ConsecutiveFailures())
	}
	if len(summary.Results) != 3 {
		t.Fatalf("sequence must continue after cooldown, got %d results", len(summary.Results))
	}
	if summary.Result("ok").Status != domain.TaskStatusCompleted {
		t.Error("task after cooldown must run")
	}
}

func TestRunner_StopOnFailureHalts(t *testing.T) {
	registry := NewRegistry()
	registry.Register("fail", func(_ context.Context, _ *Context) (any, error) {
		return nil, fmt.Errorf("%w: boom", ErrHandler)
	})
	registry.Register("never", func(_ context.Context, _ *Context) (any, error) {
		t.Error("task after halt must not run")
		return nil, nil
	})

	cfg := fastConfig(registry)
	cfg.MaxRetries = 1
	cfg.MaxConsecutiveErrors = 2
	cfg.StopOnFailure = true
	r := New(testAccount(), cfg)

	summary := r.Run(t.Context(), []string{"fail", "fail", "never"})

	if summary.Status != domain.RunnerStatusFailed {
		t.Fatalf("expected FAILED, got %s", summary.Status)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected 2 results before halt, got %d", len(summary.Results))
	}
	if summary.Result("never") != nil {
		t.Error("halted task must have no result entry")
	}
}

func TestRunner_FatalAbortsSequence(t *testing.T) {
	// Фатальная капча-ошибка на задаче 2 из 3: статус ABORTED,
	// задача 3 без результата, fatal_error=true.
	registry := NewRegistry()
	registry.Register("t1", func(_ context.Context, _ *Context) (any, error) {
		return nil, nil
	})
	registry.Register("t2", func(_ context.Context, _ *Context) (any, error) {
		return nil, fmt.Errorf("%w: task c-9 not solved after 5 polls", captcha.ErrSolverExhausted)
	})
	registry.Register("t3", func(_ context.Context, _ *Context) (any, error) {
		t.Error("task after abort must not run")
		return nil, nil
	})

	r := New(testAccount(), fastConfig(registry))
	summary := r.Run(t.Context(), []string{"t1", "t2", "t3"})

	if summary.Status != domain.RunnerStatusAborted {
		t.Fatalf("expected ABORTED, got %s", summary.Status)
	}
	if !summary.FatalError {
		t.Error("summary must carry fatal_error=true")
	}
	if summary.Result("t3") != nil {
		t.Error("aborted task must have no result entry")
	}

	t2 := summary.Result("t2")
	if t2 == nil || !t2.Fatal {
		t.Errorf("t2 result must be fatal, got %+v", t2)
	}
	// Фатальная ошибка не ретраится.
	if t2.Retries != 0 {
		t.Errorf("fatal error must not be retried, got %d retries", t2.Retries)
	}
}

func TestRunner_FatalWrapper(t *testing.T) {
	base := errors.New("broken key")
	wrapped := Fatal(base)

	if !IsFatal(wrapped) {
		t.Error("Fatal-wrapped error must be fatal")
	}
	if !errors.Is(wrapped, base) {
		t.Error("Fatal must preserve the cause for errors.Is")
	}
	if IsFatal(base) {
		t.Error("plain error must not be fatal")
	}
	if IsFatal(nil) {
		t.Error("nil must not be fatal")
	}
}

func TestRunner_UnknownTaskRecordedAsFailed(t *testing.T) {
	r := New(testAccount(), fastConfig(NewRegistry()))
	summary := r.Run(t.Context(), []string{"ghost"})

	if summary.Status != domain.RunnerStatusFailed {
		t.Fatalf("expected FAILED, got %s", summary.Status)
	}
	ghost := summary.Result("ghost")
	if ghost == nil || ghost.Status != domain.TaskStatusFailed || ghost.Error == "" {
		t.Errorf("unknown task must yield a failed result, got %+v", ghost)
	}
}

func TestRunner_ResultCountNeverExceedsSequence(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"a", "b", "c", "d"} {
		registry.Register(name, func(_ context.Context, _ *Context) (any, error) {
			return nil, nil
		})
	}

	r := New(testAccount(), fastConfig(registry))
	sequence := []string{"a", "b", "c", "d"}
	summary := r.Run(t.Context(), sequence)

	if len(summary.Results) > len(sequence) {
		t.Fatalf("results (%d) must never exceed sequence length (%d)", len(summary.Results), len(sequence))
	}
	if len(summary.Results) != len(sequence) {
		t.Fatalf("full sequence must yield one result per task, got %d", len(summary.Results))
	}
}

func TestRunner_CancellationStopsSequence(t *testing.T) {
	registry := NewRegistry()
	registry.Register("slow", func(ctx context.Context, _ *Context) (any, error) {
		select {
		case <-time.After(5 * time.Second):
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	cfg := fastConfig(registry)
	cfg.MaxRetries = 1
	r := New(testAccount(), cfg)

	done := make(chan *domain.RunSummary, 1)
	go func() { done <- r.Run(ctx, []string{"slow", "slow"}) }()

	select {
	case summary := <-done:
		if summary.Status != domain.RunnerStatusFailed {
			t.Errorf("cancelled run must be FAILED, got %s", summary.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runner must stop promptly on cancellation")
	}
}

func TestContext_Values(t *testing.T) {
	rc := &Context{}

	if _, ok := rc.Get("missing"); ok {
		t.Error("empty context must not resolve keys")
	}

	rc.Set(KeyAuthToken, "tok-123")
	if got := rc.GetString(KeyAuthToken); got != "tok-123" {
		t.Errorf("expected stored token, got %q", got)
	}

	rc.Set("n", 42)
	if got := rc.GetString("n"); got != "" {
		t.Errorf("non-string value must yield empty string, got %q", got)
	}
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry()
	registry.Register("profile", func(context.Context, *Context) (any, error) { return nil, nil })
	registry.Register("login", func(context.Context, *Context) (any, error) { return nil, nil })
	registry.Register("checkin", func(context.Context, *Context) (any, error) { return nil, nil })

	got := registry.Names()
	want := []string{"checkin", "login", "profile"}
	if len(got) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s (names must be sorted)", i, got[i], want[i])
		}
	}
}
