package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_DefaultsAndRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
		"platform": {"base_url": "https://platform.example"},
		"fleet": {
			"accounts_file": "accounts.json",
			"sequence": ["login", "checkin"]
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Listen != ":8080" {
		t.Errorf("default listen, got %s", cfg.Listen)
	}
	if cfg.Fleet.MaxWorkers != 5 {
		t.Errorf("default max_workers, got %d", cfg.Fleet.MaxWorkers)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("default storage driver, got %s", cfg.Storage.Driver)
	}
	// Относительные пути разрешаются от каталога конфигурации.
	if cfg.Fleet.AccountsFile != filepath.Join(dir, "accounts.json") {
		t.Errorf("accounts_file not resolved: %s", cfg.Fleet.AccountsFile)
	}
	if cfg.Storage.Dir != filepath.Join(dir, "summaries") {
		t.Errorf("storage dir not resolved: %s", cfg.Storage.Dir)
	}
}

func TestLoad_Validation(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		content string
	}{
		{"missing base_url", `{"fleet": {"accounts_file": "a.json", "sequence": ["x"]}}`},
		{"missing accounts_file", `{"platform": {"base_url": "https://p"}, "fleet": {"sequence": ["x"]}}`},
		{"missing sequence", `{"platform": {"base_url": "https://p"}, "fleet": {"accounts_file": "a.json"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad-"+tc.name+".json", tc.content)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
		"platform": {"base_url": "https://platform.example"},
		"fleet": {"accounts_file": "a.json", "sequence": ["login"]},
		"captcha": {"endpoint": "https://solver", "api_key": "from-file"}
	}`)

	t.Setenv("CAPTCHA_API_KEY", "from-env")
	t.Setenv("LISTEN_ADDR", ":9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Captcha.APIKey != "from-env" {
		t.Errorf("env must override file, got %s", cfg.Captcha.APIKey)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("env must override listen, got %s", cfg.Listen)
	}
}

func TestLoadAccounts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "accounts.json", `[
		{"address": "0xA", "private_key": "deadbeef", "label": "first"},
		{"address": "0xB", "private_key": "cafebabe",
		 "proxy": {"host": "10.0.0.1", "port": "1080"}}
	]`)

	accounts, err := LoadAccounts(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].PrivateKey != "deadbeef" || accounts[0].Label != "first" {
		t.Errorf("first account mismatch: %+v", accounts[0])
	}
	if !accounts[1].HasProxy() || accounts[1].Proxy.Host != "10.0.0.1" {
		t.Errorf("second account proxy mismatch: %+v", accounts[1].Proxy)
	}
}

func TestLoadAccounts_MissingKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "accounts.json", `[{"address": "0xA"}]`)

	if _, err := LoadAccounts(path); err == nil {
		t.Error("account without private_key must be rejected")
	}
}

func TestLoadProxies(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "proxies.txt", `
# пул для аккаунтов без персонального прокси
10.0.0.1:1080
10.0.0.2:1080:user:pass

`)

	proxies, err := LoadProxies(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(proxies) != 2 {
		t.Fatalf("expected 2 proxies, got %d", len(proxies))
	}
	if proxies[0].Host != "10.0.0.1" || proxies[0].Username != "" {
		t.Errorf("first proxy mismatch: %+v", proxies[0])
	}
	if proxies[1].Username != "user" || proxies[1].Password != "pass" {
		t.Errorf("second proxy credentials mismatch: %+v", proxies[1])
	}
}

func TestLoadProxies_BadLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "proxies.txt", "not-a-proxy\n")

	if _, err := LoadProxies(path); err == nil {
		t.Error("malformed proxy line must be rejected")
	}
}

func TestRunnerConfig_Durations(t *testing.T) {
	rc := RunnerConfig{
		InitialRetryDelayMs: 1500,
		CooldownSec:         90,
		StaggerMinMs:        100,
		StaggerMaxMs:        300,
		TaskDelayMs:         250,
		TaskDelayMinMs:      50,
		TaskDelayMaxMs:      400,
	}

	cases := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"initial_retry_delay", rc.InitialRetryDelay(), 1500 * time.Millisecond},
		{"cooldown", rc.Cooldown(), 90 * time.Second},
		{"stagger_min", rc.StaggerMin(), 100 * time.Millisecond},
		{"stagger_max", rc.StaggerMax(), 300 * time.Millisecond},
		{"task_delay", rc.TaskDelay(), 250 * time.Millisecond},
		{"task_delay_min", rc.TaskDelayMin(), 50 * time.Millisecond},
		{"task_delay_max", rc.TaskDelayMax(), 400 * time.Millisecond},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s = %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}
