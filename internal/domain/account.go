package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Account — учётная запись под автоматизацией.
//
// Создаётся при загрузке из внешнего источника и неизменяема
// на протяжении жизни runner'а. Приватный ключ непрозрачен для ядра —
// он передаётся только внешнему signer'у. Ядро никогда не
// персистирует аккаунт вместе с секретами.
type Account struct {
	// Address — публичный идентификатор, выведенный из приватного ключа.
	Address string `json:"address"`

	// PrivateKey — приватный ключ (hex). Не сериализуется.
	PrivateKey string `json:"-"`

	// Label — человекочитаемая метка (опционально).
	Label string `json:"label,omitempty"`

	// Proxy — персональная сетевая идентичность.
	// Nil, если аккаунту будет назначен прокси из общего пула.
	Proxy *Proxy `json:"proxy,omitempty"`
}

// HasProxy возвращает true, если у аккаунта есть явная сетевая идентичность.
func (a *Account) HasProxy() bool {
	return a.Proxy != nil
}

// Proxy — сетевая идентичность: endpoint прокси с опциональными
// учётными данными.
//
// Прокси разделяется между аккаунтами, если у аккаунта нет
// персонального. Ротацию fingerprint'а выполняет HTTP-клиент,
// а не оркестратор.
type Proxy struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// URL возвращает прокси в виде *url.URL для http.Transport.
func (p *Proxy) URL() *url.URL {
	u := &url.URL{
		Scheme: "http",
		Host:   p.Host + ":" + p.Port,
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// String возвращает прокси без учётных данных (для логов).
func (p *Proxy) String() string {
	return p.Host + ":" + p.Port
}

// ParseProxy парсит строку формата host:port или host:port:user:pass.
func ParseProxy(line string) (*Proxy, error) {
	parts := strings.Split(strings.TrimSpace(line), ":")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid proxy line %q", line)
		}
		return &Proxy{Host: parts[0], Port: parts[1]}, nil
	case 4:
		if parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid proxy line %q", line)
		}
		return &Proxy{Host: parts[0], Port: parts[1], Username: parts[2], Password: parts[3]}, nil
	default:
		return nil, fmt.Errorf("invalid proxy line %q: expected host:port or host:port:user:pass", line)
	}
}
