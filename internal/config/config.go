package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shaiso/Cohort/internal/domain"
)

// Config — корневая конфигурация запуска.
type Config struct {
	Platform PlatformConfig `json:"platform"`
	Fleet    FleetConfig    `json:"fleet"`
	Client   ClientConfig   `json:"client"`
	Runner   RunnerConfig   `json:"runner"`
	Captcha  CaptchaConfig  `json:"captcha"`
	Storage  StorageConfig  `json:"storage"`
	MQ       MQConfig       `json:"mq"`
	Schedule ScheduleConfig `json:"schedule"`
	Listen   string         `json:"listen"`
}

// PlatformConfig — целевая платформа автоматизации.
type PlatformConfig struct {
	// BaseURL — базовый URL платформы (обязательно).
	BaseURL string `json:"base_url"`
}

// FleetConfig — состав и параллелизм запуска.
type FleetConfig struct {
	// AccountsFile — путь к JSON-файлу аккаунтов (обязательно).
	AccountsFile string `json:"accounts_file"`

	// ProxiesFile — путь к файлу пула прокси (опционально).
	ProxiesFile string `json:"proxies_file"`

	// Sequence — последовательность задач каждого аккаунта.
	Sequence []string `json:"sequence"`

	// MaxWorkers — верхняя граница одновременных аккаунтов.
	MaxWorkers int `json:"max_workers"`
}

// ClientConfig — параметры per-account HTTP-клиента.
type ClientConfig struct {
	RateLimit     int `json:"rate_limit"`
	RateWindowSec int `json:"rate_window_sec"`
	MaxAttempts   int `json:"max_attempts"`
	RetryDelayMs  int `json:"retry_delay_ms"`
	TimeoutSec    int `json:"timeout_sec"`
}

// RunnerConfig — параметры машины состояний аккаунта.
type RunnerConfig struct {
	MaxRetries           int  `json:"max_retries"`
	InitialRetryDelayMs  int  `json:"initial_retry_delay_ms"`
	MaxConsecutiveErrors int  `json:"max_consecutive_errors"`
	CooldownSec          int  `json:"cooldown_sec"`
	StopOnFailure        bool `json:"stop_on_failure"`
	StaggerMinMs         int  `json:"stagger_min_ms"`
	StaggerMaxMs         int  `json:"stagger_max_ms"`

	// TaskDelayMs — фиксированная пауза между задачами.
	// TaskDelayMinMs/MaxMs — диапазон; имеет приоритет над TaskDelayMs.
	TaskDelayMs    int `json:"task_delay_ms"`
	TaskDelayMinMs int `json:"task_delay_min_ms"`
	TaskDelayMaxMs int `json:"task_delay_max_ms"`
}

// CaptchaConfig — внешний решатель капч.
type CaptchaConfig struct {
	Endpoint string `json:"endpoint"`

	// APIKey переопределяется переменной CAPTCHA_API_KEY.
	APIKey string `json:"api_key"`
}

// StorageConfig — персистенция сводок.
type StorageConfig struct {
	// Driver: "file" (по умолчанию) или "postgres".
	Driver string `json:"driver"`

	// Dir — каталог сводок для driver=file.
	Dir string `json:"dir"`
}

// MQConfig — публикация событий в RabbitMQ.
type MQConfig struct {
	Enabled bool `json:"enabled"`

	// URL переопределяется переменной MQ_URL.
	URL string `json:"url"`
}

// ScheduleConfig — расписание повторных запусков.
type ScheduleConfig struct {
	// Cron — выражение robfig/cron (пусто — одиночный запуск).
	Cron string `json:"cron"`
}

// Load парсит JSON-файл конфигурации и применяет значения
// по умолчанию и переопределения из окружения.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	cfg.applyEnv()

	if cfg.Platform.BaseURL == "" {
		return nil, errors.New("platform.base_url is required")
	}
	if cfg.Fleet.AccountsFile == "" {
		return nil, errors.New("fleet.accounts_file is required")
	}
	if len(cfg.Fleet.Sequence) == 0 {
		return nil, errors.New("fleet.sequence is required")
	}

	return &cfg, nil
}

// applyDefaults устанавливает значения по умолчанию; относительные
// пути разрешаются от каталога конфигурации.
func (c *Config) applyDefaults(baseDir string) {
	if c.Listen == "" {
		c.Listen = ":8080"
	}

	if c.Fleet.MaxWorkers <= 0 {
		c.Fleet.MaxWorkers = 5
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = filepath.Join(baseDir, "summaries")
	} else if !filepath.IsAbs(c.Storage.Dir) {
		c.Storage.Dir = filepath.Join(baseDir, c.Storage.Dir)
	}

	if c.Fleet.AccountsFile != "" && !filepath.IsAbs(c.Fleet.AccountsFile) {
		c.Fleet.AccountsFile = filepath.Join(baseDir, c.Fleet.AccountsFile)
	}
	if c.Fleet.ProxiesFile != "" && !filepath.IsAbs(c.Fleet.ProxiesFile) {
		c.Fleet.ProxiesFile = filepath.Join(baseDir, c.Fleet.ProxiesFile)
	}
}

// applyEnv накладывает переопределения из окружения.
func (c *Config) applyEnv() {
	if key := os.Getenv("CAPTCHA_API_KEY"); key != "" {
		c.Captcha.APIKey = key
	}
	if url := os.Getenv("MQ_URL"); url != "" {
		c.MQ.URL = url
	}
	if listen := os.Getenv("LISTEN_ADDR"); listen != "" {
		c.Listen = listen
	}
}

// Durations — сконвертированные интервалы клиента.
func (c *ClientConfig) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSec) * time.Second
}

func (c *ClientConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Durations — сконвертированные интервалы runner'а.
func (c *RunnerConfig) InitialRetryDelay() time.Duration {
	return time.Duration(c.InitialRetryDelayMs) * time.Millisecond
}

func (c *RunnerConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSec) * time.Second
}

func (c *RunnerConfig) StaggerMin() time.Duration {
	return time.Duration(c.StaggerMinMs) * time.Millisecond
}

func (c *RunnerConfig) StaggerMax() time.Duration {
	return time.Duration(c.StaggerMaxMs) * time.Millisecond
}

func (c *RunnerConfig) TaskDelay() time.Duration {
	return time.Duration(c.TaskDelayMs) * time.Millisecond
}

func (c *RunnerConfig) TaskDelayMin() time.Duration {
	return time.Duration(c.TaskDelayMinMs) * time.Millisecond
}

func (c *RunnerConfig) TaskDelayMax() time.Duration {
	return time.Duration(c.TaskDelayMaxMs) * time.Millisecond
}

// accountRecord — запись файла аккаунтов. Приватный ключ читается
// только здесь: domain.Account никогда его не сериализует.
type accountRecord struct {
	Address    string        `json:"address"`
	PrivateKey string        `json:"private_key"`
	Label      string        `json:"label"`
	Proxy      *domain.Proxy `json:"proxy"`
}

// LoadAccounts читает JSON-файл аккаунтов.
func LoadAccounts(path string) ([]domain.Account, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	var records []accountRecord
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("parse accounts: %w", err)
	}

	accounts := make([]domain.Account, 0, len(records))
	for i, rec := range records {
		if rec.PrivateKey == "" {
			return nil, fmt.Errorf("account %d: private_key is required", i)
		}
		accounts = append(accounts, domain.Account{
			Address:    rec.Address,
			PrivateKey: rec.PrivateKey,
			Label:      rec.Label,
			Proxy:      rec.Proxy,
		})
	}
	return accounts, nil
}

// LoadProxies читает файл пула прокси: по строке на прокси,
// пустые строки и строки с # пропускаются.
func LoadProxies(path string) ([]*domain.Proxy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proxies: %w", err)
	}

	var proxies []*domain.Proxy
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxy, err := domain.ParseProxy(line)
		if err != nil {
			return nil, fmt.Errorf("proxies line %d: %w", i+1, err)
		}
		proxies = append(proxies, proxy)
	}
	return proxies, nil
}
