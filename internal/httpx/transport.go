package httpx

import (
	"net/http"
	"sync"
	"time"

	"github.com/shaiso/Cohort/internal/domain"
)

// transportRegistry — общий реестр живых транспортов с подсчётом
// ссылок.
//
// Несколько runner'ов разделяют процессный жизненный цикл TLS-стека:
// инициализация ленивая и однократная, освобождение — при уходе
// последней ссылки. Реестр нужен и для принудительного закрытия
// всех соединений по истечении grace-периода shutdown'а.
type transportRegistry struct {
	mu   sync.Mutex
	refs int
	live map[*http.Transport]struct{}
}

var (
	registryOnce sync.Once
	registry     *transportRegistry
)

// sharedRegistry лениво инициализирует реестр.
func sharedRegistry() *transportRegistry {
	registryOnce.Do(func() {
		registry = &transportRegistry{live: make(map[*http.Transport]struct{})}
	})
	return registry
}

// acquireTransport строит транспорт под профиль и прокси и
// регистрирует его в общем реестре.
func acquireTransport(profile FingerprintProfile, proxy *domain.Proxy) *http.Transport {
	t := &http.Transport{
		TLSClientConfig:     profile.tlsConfig(),
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
	}
	if proxy != nil {
		t.Proxy = http.ProxyURL(proxy.URL())
	}

	r := sharedRegistry()
	r.mu.Lock()
	r.refs++
	r.live[t] = struct{}{}
	r.mu.Unlock()

	return t
}

// releaseTransport закрывает idle-соединения транспорта и снимает
// ссылку в реестре.
func releaseTransport(t *http.Transport) {
	if t == nil {
		return
	}
	t.CloseIdleConnections()

	r := sharedRegistry()
	r.mu.Lock()
	if _, ok := r.live[t]; ok {
		delete(r.live, t)
		r.refs--
	}
	r.mu.Unlock()
}

// CloseAllTransports принудительно закрывает соединения всех живых
// транспортов. Вызывается оркестратором по истечении grace-периода,
// независимо от in-flight запросов.
func CloseAllTransports() {
	r := sharedRegistry()
	r.mu.Lock()
	transports := make([]*http.Transport, 0, len(r.live))
	for t := range r.live {
		transports = append(transports, t)
	}
	r.live = make(map[*http.Transport]struct{})
	r.refs = 0
	r.mu.Unlock()

	for _, t := range transports {
		t.CloseIdleConnections()
	}
}

// LiveTransports возвращает количество живых транспортов.
func LiveTransports() int {
	r := sharedRegistry()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}
