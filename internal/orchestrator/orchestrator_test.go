package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Cohort/internal/domain"
	"github.com/shaiso/Cohort/internal/mq"
	"github.com/shaiso/Cohort/internal/runner"
)

// Тестовые ключи (hardhat dev keys, не несут ценности).
var testKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
}

func testAccounts(n int) []domain.Account {
	accounts := make([]domain.Account, 0, n)
	for i := 0; i < n; i++ {
		accounts = append(accounts, domain.Account{
			Address:    fmt.Sprintf("acct-%d", i),
			PrivateKey: testKeys[i%len(testKeys)],
			Label:      fmt.Sprintf("label-%d", i),
		})
	}
	return accounts
}

func fastRunnerConfig() runner.Config {
	return runner.Config{
		MaxRetries:           1,
		InitialRetryDelay:    time.Millisecond,
		MaxConsecutiveErrors: 10,
		CooldownPeriod:       time.Millisecond,
	}
}

type memoryStore struct {
	mu    sync.Mutex
	saved []*domain.AggregateSummary
}

func (s *memoryStore) SaveSummary(_ context.Context, summary *domain.AggregateSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, summary)
	return nil
}

type memoryEvents struct {
	mu       sync.Mutex
	accounts []mq.AccountCompletedPayload
	runs     []mq.RunCompletedPayload
}

func (e *memoryEvents) PublishAccountCompleted(_ context.Context, p mq.AccountCompletedPayload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accounts = append(e.accounts, p)
	return nil
}

func (e *memoryEvents) PublishRunCompleted(_ context.Context, p mq.RunCompletedPayload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs = append(e.runs, p)
	return nil
}

func TestOrchestrator_AllAccountsRunWithBoundedConcurrency(t *testing.T) {
	// 3 аккаунта при maxWorkers=2: все выполняются, одновременно — не
	// более двух.
	var inFlight, peak atomic.Int32

	registry := runner.NewRegistry()
	registry.Register("checkin", func(_ context.Context, _ *runner.Context) (any, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	})

	o := New(Config{
		Accounts:   testAccounts(3),
		Sequence:   []string{"checkin"},
		Registry:   registry,
		Runner:     fastRunnerConfig(),
		MaxWorkers: 2,
	})

	aggregate, err := o.Run(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if aggregate.Accounts != 3 || aggregate.Completed != 3 || aggregate.Failed != 0 {
		t.Errorf("expected 3/3/0, got %d/%d/%d",
			aggregate.Accounts, aggregate.Completed, aggregate.Failed)
	}
	if aggregate.SuccessRate != 1.0 {
		t.Errorf("expected success rate 1.0, got %f", aggregate.SuccessRate)
	}
	if len(aggregate.Summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(aggregate.Summaries))
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("concurrency exceeded maxWorkers: peak %d", got)
	}
}

func TestOrchestrator_AccountFailureDoesNotAffectOthers(t *testing.T) {
	accounts := testAccounts(3)
	failing := accounts[1].Address

	registry := runner.NewRegistry()
	registry.Register("work", func(_ context.Context, rc *runner.Context) (any, error) {
		if rc.Account.Address == failing {
			return nil, fmt.Errorf("%w: unit down", runner.ErrHandler)
		}
		return nil, nil
	})

	o := New(Config{
		Accounts: accounts,
		Sequence: []string{"work"},
		Registry: registry,
		Runner:   fastRunnerConfig(),
	})

	aggregate, err := o.Run(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if aggregate.Completed != 2 || aggregate.Failed != 1 {
		t.Errorf("expected 2 completed / 1 failed, got %d/%d",
			aggregate.Completed, aggregate.Failed)
	}

	for i := range aggregate.Summaries {
		s := &aggregate.Summaries[i]
		if s.Address == failing {
			if s.Status != domain.RunnerStatusFailed {
				t.Errorf("failing account must be FAILED, got %s", s.Status)
			}
		} else if s.Status != domain.RunnerStatusCompleted {
			t.Errorf("account %s must be COMPLETED, got %s", s.Address, s.Status)
		}
	}
}

func TestOrchestrator_BrokenKeyRecordedWithoutRunningTasks(t *testing.T) {
	accounts := testAccounts(2)
	accounts[1].PrivateKey = "not-a-key"

	executed := make(map[string]bool)
	var mu sync.Mutex

	registry := runner.NewRegistry()
	registry.Register("work", func(_ context.Context, rc *runner.Context) (any, error) {
		mu.Lock()
		executed[rc.Account.Address] = true
		mu.Unlock()
		return nil, nil
	})

	o := New(Config{
		Accounts: accounts,
		Sequence: []string{"work"},
		Registry: registry,
		Runner:   fastRunnerConfig(),
	})

	aggregate, err := o.Run(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if aggregate.Completed != 1 || aggregate.Failed != 1 {
		t.Fatalf("expected 1/1, got %d/%d", aggregate.Completed, aggregate.Failed)
	}

	var broken *domain.RunSummary
	for i := range aggregate.Summaries {
		if aggregate.Summaries[i].Address == accounts[1].Address {
			broken = &aggregate.Summaries[i]
		}
	}
	if broken == nil {
		t.Fatal("broken account must still appear in the aggregate")
	}
	if broken.Error == "" || len(broken.Results) != 0 {
		t.Errorf("broken key must yield a config error without task results, got %+v", broken)
	}
	if executed[accounts[1].Address] {
		t.Error("tasks must not run for an account with a broken key")
	}
}

func TestOrchestrator_ProxyAssignmentRoundRobin(t *testing.T) {
	personal := &domain.Proxy{Host: "own", Port: "8080"}
	pool := []*domain.Proxy{
		{Host: "p1", Port: "1080"},
		{Host: "p2", Port: "1080"},
	}

	accounts := testAccounts(4)
	accounts[1].Proxy = personal

	o := New(Config{
		Accounts: accounts,
		Proxies:  pool,
		Sequence: []string{"noop"},
		Registry: runner.NewRegistry(),
	})

	assigned := o.assignProxies()

	if assigned[1].Proxy != personal {
		t.Error("personal proxy must be preserved")
	}
	// Пул распределяется round-robin только среди аккаунтов без прокси.
	if assigned[0].Proxy != pool[0] || assigned[2].Proxy != pool[1] || assigned[3].Proxy != pool[0] {
		t.Errorf("unexpected assignment: %v %v %v",
			assigned[0].Proxy, assigned[2].Proxy, assigned[3].Proxy)
	}
	// Исходный срез не мутируется.
	if accounts[0].Proxy != nil {
		t.Error("source accounts must not be mutated")
	}
}

func TestOrchestrator_PersistsAndPublishes(t *testing.T) {
	registry := runner.NewRegistry()
	registry.Register("noop", func(_ context.Context, _ *runner.Context) (any, error) {
		return nil, nil
	})

	store := &memoryStore{}
	events := &memoryEvents{}

	o := New(Config{
		Accounts: testAccounts(2),
		Sequence: []string{"noop"},
		Registry: registry,
		Runner:   fastRunnerConfig(),
		Store:    store,
		Events:   events,
	})

	aggregate, err := o.Run(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.saved) != 1 || store.saved[0].RunID != aggregate.RunID {
		t.Errorf("aggregate must be persisted once, got %d", len(store.saved))
	}
	if len(events.accounts) != 2 {
		t.Errorf("expected 2 account events, got %d", len(events.accounts))
	}
	if len(events.runs) != 1 {
		t.Fatalf("expected 1 run event, got %d", len(events.runs))
	}
	if events.runs[0].Completed != 2 || events.runs[0].Failed != 0 {
		t.Errorf("run event counters mismatch: %+v", events.runs[0])
	}
}

func TestOrchestrator_ConfigValidation(t *testing.T) {
	o := New(Config{Sequence: []string{"noop"}, Registry: runner.NewRegistry()})
	if _, err := o.Run(t.Context()); err != ErrNoAccounts {
		t.Errorf("expected ErrNoAccounts, got %v", err)
	}

	o = New(Config{Accounts: testAccounts(1), Registry: runner.NewRegistry()})
	if _, err := o.Run(t.Context()); err != ErrNoSequence {
		t.Errorf("expected ErrNoSequence, got %v", err)
	}
}

func TestOrchestrator_ShutdownBoundedByGrace(t *testing.T) {
	registry := runner.NewRegistry()
	registry.Register("slow", func(ctx context.Context, _ *runner.Context) (any, error) {
		select {
		case <-time.After(10 * time.Second):
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

	o := New(Config{
		Accounts:      testAccounts(2),
		Sequence:      []string{"slow"},
		Registry:      registry,
		Runner:        fastRunnerConfig(),
		ShutdownGrace: time.Second,
	})

	start := time.Now()
	aggregate, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("shutdown took too long: %v", elapsed)
	}
	// Отменённые runner'ы завершаются как failed.
	if aggregate.Completed != 0 {
		t.Errorf("cancelled accounts must not be completed, got %d", aggregate.Completed)
	}
}
