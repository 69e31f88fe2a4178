package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaiso/Cohort/internal/domain"
	"github.com/shaiso/Cohort/internal/ratelimit"
)

// Default configuration values.
const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
	defaultTimeout     = 30 * time.Second
	defaultRateLimit   = 60
)

// Client — устойчивый HTTP-клиент одного runner'а.
//
// Приватно владеет rate limiter'ом, памятью кодирования заголовков
// и пулом fingerprint-профилей. Экземпляр не разделяется между
// аккаунтами.
type Client struct {
	limiter *ratelimit.Limiter
	memory  *EncodingMemory

	profiles       []FingerprintProfile
	proxy          *domain.Proxy
	defaultMode    EncodingMode
	defaultHeaders map[string]string

	maxAttempts int
	retryDelay  time.Duration
	timeout     time.Duration

	// mu защищает текущий транспорт и профиль при ротации.
	mu         sync.Mutex
	profile    FingerprintProfile
	transport  *http.Transport
	httpClient *http.Client
	closed     bool

	requests atomic.Uint64
	retries  atomic.Uint64

	logger *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// Proxy — сетевая идентичность (опционально).
	Proxy *domain.Proxy

	// Profiles — пул fingerprint-профилей (default: DefaultProfiles).
	Profiles []FingerprintProfile

	// DefaultMode — формат заголовков для незнакомых endpoint'ов
	// (default: structured).
	DefaultMode EncodingMode

	// DefaultHeaders — базовый набор заголовков каждого запроса.
	DefaultHeaders map[string]string

	// RateLimit — запросов за скользящее окно (default: 60).
	RateLimit int

	// RateWindow — ширина окна (default: 60s).
	RateWindow time.Duration

	// MaxAttempts — максимум попыток запроса (default: 3).
	MaxAttempts int

	// RetryDelay — базовая задержка backoff (default: 1s).
	RetryDelay time.Duration

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration

	// Logger
	Logger *slog.Logger
}

// Response — результат логического запроса.
type Response struct {
	// Status — HTTP-код ответа.
	Status int

	// Headers — заголовки ответа.
	Headers map[string]string

	// Body — распарсенное тело: JSON при соответствующем
	// content-type, иначе строка.
	Body any

	// Raw — сырые байты тела.
	Raw []byte
}

// New создаёт Client.
func New(cfg Config) *Client {
	profiles := cfg.Profiles
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}

	mode := cfg.DefaultMode
	if mode == "" {
		mode = EncodingStructured
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		limiter:        ratelimit.New(rateLimit, cfg.RateWindow),
		memory:         NewEncodingMemory(),
		profiles:       profiles,
		proxy:          cfg.Proxy,
		defaultMode:    mode,
		defaultHeaders: cfg.DefaultHeaders,
		maxAttempts:    maxAttempts,
		retryDelay:     retryDelay,
		timeout:        timeout,
		logger:         logger,
	}

	c.profile = profiles[rand.IntN(len(profiles))]
	c.transport = acquireTransport(c.profile, c.proxy)
	c.httpClient = &http.Client{Transport: c.transport}

	return c
}

// Send выполняет один логический запрос.
//
// body != nil сериализуется в JSON. headers накладываются поверх
// базового набора. Возвращает *RequestError только после исчерпания
// всех попыток; HTTP-статусы >= 400 (кроме отклонения формата
// заголовков) возвращаются вызывающему как обычный Response.
func (c *Client) Send(ctx context.Context, method, rawURL string, body any, headers map[string]string) (*Response, error) {
	endpoint := EndpointKey(rawURL)

	mode, ok := c.memory.Lookup(endpoint)
	if !ok {
		mode = c.defaultMode
	}

	merged := c.mergeHeaders(headers)

	// attempt стартует с 0; flip формата заголовков не расходует
	// попытку, но ограничен одним на жизненный цикл запроса.
	attempt := 0
	flipped := false
	var lastErr error

	for {
		if err := c.limiter.Admit(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRateLimitWait, err)
		}

		resp, raw, err := c.issue(ctx, method, rawURL, body, merged, mode)
		if err == nil {
			if IsEncodingRejection(resp.StatusCode, raw) {
				if !flipped {
					flipped = true
					mode = mode.Other()
					c.memory.Set(endpoint, mode)
					c.logger.Debug("header encoding flipped",
						"endpoint", endpoint,
						"mode", mode,
					)
					continue
				}
				// Оба формата отклонены — считаем транспортной проблемой.
				lastErr = fmt.Errorf("%w: endpoint %s rejected both modes", ErrEncodingMismatch, endpoint)
			} else {
				return buildResponse(resp, raw), nil
			}
		} else {
			lastErr = fmt.Errorf("%w: %v", ErrTransport, err)
		}

		attempt++
		if attempt >= c.maxAttempts {
			break
		}

		// Новый fingerprint и экспоненциальный backoff перед retry.
		c.rotateFingerprint()
		c.retries.Add(1)

		delay := c.retryDelay * time.Duration(1<<(attempt-1))
		c.logger.Debug("retrying request",
			"endpoint", endpoint,
			"attempt", attempt,
			"delay", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	return nil, &RequestError{
		Method:   method,
		URL:      rawURL,
		Attempts: attempt,
		Err:      lastErr,
	}
}

// issue выполняет одну физическую попытку запроса.
func (c *Client) issue(ctx context.Context, method, rawURL string, body any, headers map[string]string, mode EncodingMode) (*http.Response, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	c.applyHeaders(req, headers, mode)

	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.Lock()
	client := c.httpClient
	profile := c.profile
	c.mu.Unlock()

	req.Header.Set("User-Agent", profile.UserAgent)

	c.requests.Add(1)

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	return resp, raw, nil
}

// applyHeaders накладывает заголовки в выбранном формате.
func (c *Client) applyHeaders(req *http.Request, headers map[string]string, mode EncodingMode) {
	switch mode {
	case EncodingFlat:
		if len(headers) > 0 {
			req.Header.Set(FlatHeaderName, flattenHeaders(headers))
		}
	default:
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}
}

// mergeHeaders накладывает заголовки вызывающего поверх базовых.
func (c *Client) mergeHeaders(headers map[string]string) map[string]string {
	merged := make(map[string]string, len(c.defaultHeaders)+len(headers))
	for k, v := range c.defaultHeaders {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}
	return merged
}

// rotateFingerprint сбрасывает транспорт и выбирает случайный профиль
// из пула.
func (c *Client) rotateFingerprint() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	next := c.profiles[rand.IntN(len(c.profiles))]
	if len(c.profiles) > 1 {
		for next.Name == c.profile.Name {
			next = c.profiles[rand.IntN(len(c.profiles))]
		}
	}

	releaseTransport(c.transport)
	c.profile = next
	c.transport = acquireTransport(next, c.proxy)
	c.httpClient = &http.Client{Transport: c.transport}

	c.logger.Debug("fingerprint rotated", "profile", next.Name)
}

// buildResponse формирует Response с оппортунистическим парсингом JSON.
func buildResponse(resp *http.Response, raw []byte) *Response {
	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	var body any = string(raw)
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "json") {
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err == nil {
			body = parsed
		}
	}

	return &Response{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    body,
		Raw:     raw,
	}
}

// Stats — снимок счётчиков клиента.
type Stats struct {
	Requests uint64
	Retries  uint64
}

// Stats возвращает снимок счётчиков.
func (c *Client) Stats() Stats {
	return Stats{
		Requests: c.requests.Load(),
		Retries:  c.retries.Load(),
	}
}

// Memory возвращает память кодирования клиента.
func (c *Client) Memory() *EncodingMemory {
	return c.memory
}

// Profile возвращает имя активного fingerprint-профиля.
func (c *Client) Profile() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.Name
}

// Close освобождает транспорт клиента.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	releaseTransport(c.transport)
}
