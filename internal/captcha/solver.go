package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Default configuration values.
const (
	defaultMaxAttempts  = 5
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 15 * time.Second
)

// Ошибки solver'а.
var (
	// ErrSolverExhausted — сервис не вернул решение за отведённые
	// попытки. Фатальна для последовательности задач runner'а.
	ErrSolverExhausted = errors.New("captcha solver attempts exhausted")

	// ErrSolverRejected — сервис отклонил задачу (невалидный ключ,
	// нераспознаваемое изображение).
	ErrSolverRejected = errors.New("captcha task rejected")
)

// Solver решает графические капчи.
type Solver interface {
	// SolveImage возвращает текст с изображения в base64.
	SolveImage(ctx context.Context, imageBase64 string) (string, error)
}

// HTTPSolver — Solver поверх HTTP-сервиса распознавания.
type HTTPSolver struct {
	endpoint string
	apiKey   string

	httpClient   *http.Client
	maxAttempts  int
	pollInterval time.Duration

	logger *slog.Logger
}

// Config — конфигурация HTTPSolver.
type Config struct {
	// Endpoint — базовый URL сервиса.
	Endpoint string

	// APIKey — ключ доступа.
	APIKey string

	// MaxAttempts — лимит опросов результата (default: 5).
	MaxAttempts int

	// PollInterval — пауза между опросами (default: 2s).
	PollInterval time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт HTTPSolver.
func New(cfg Config) *HTTPSolver {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPSolver{
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		maxAttempts:  maxAttempts,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// submitResponse — ответ сервиса на создание задачи.
type submitResponse struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error,omitempty"`
}

// resultResponse — ответ сервиса на опрос результата.
type resultResponse struct {
	Status string `json:"status"` // "pending" | "ready" | "failed"
	Text   string `json:"text,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SolveImage отправляет изображение и опрашивает результат до
// готовности или исчерпания попыток.
func (s *HTTPSolver) SolveImage(ctx context.Context, imageBase64 string) (string, error) {
	taskID, err := s.submit(ctx, imageBase64)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		timer := time.NewTimer(s.pollInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}

		result, err := s.poll(ctx, taskID)
		if err != nil {
			s.logger.Debug("captcha poll failed", "task_id", taskID, "error", err)
			continue
		}

		switch result.Status {
		case "ready":
			return result.Text, nil
		case "failed":
			return "", fmt.Errorf("%w: %s", ErrSolverRejected, result.Error)
		}
	}

	return "", fmt.Errorf("%w: task %s not solved after %d polls", ErrSolverExhausted, taskID, s.maxAttempts)
}

// submit создаёт задачу распознавания.
func (s *HTTPSolver) submit(ctx context.Context, imageBase64 string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"key":   s.apiKey,
		"image": imageBase64,
	})
	if err != nil {
		return "", fmt.Errorf("marshal submit payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/solve", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit captcha: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read submit response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d", ErrSolverRejected, resp.StatusCode)
	}

	var parsed submitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse submit response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrSolverRejected, parsed.Error)
	}
	if parsed.TaskID == "" {
		return "", fmt.Errorf("%w: empty task id", ErrSolverRejected)
	}

	return parsed.TaskID, nil
}

// poll опрашивает результат задачи.
func (s *HTTPSolver) poll(ctx context.Context, taskID string) (*resultResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/result?task_id="+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("create poll request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll captcha: %w", err)
	}
	defer resp.Body.Close()

	var parsed resultResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse poll response: %w", err)
	}

	return &parsed, nil
}
