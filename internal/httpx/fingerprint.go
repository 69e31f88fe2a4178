package httpx

import "crypto/tls"

// FingerprintProfile — набор параметров TLS-рукопожатия, имитирующий
// конкретную клиентскую реализацию (порядок шифров и кривых плюс
// соответствующий User-Agent).
type FingerprintProfile struct {
	Name      string
	UserAgent string

	CipherSuites []uint16
	Curves       []tls.CurveID
	MinVersion   uint16
}

// tlsConfig строит tls.Config по профилю.
func (p FingerprintProfile) tlsConfig() *tls.Config {
	return &tls.Config{
		MinVersion:       p.MinVersion,
		CipherSuites:     p.CipherSuites,
		CurvePreferences: p.Curves,
	}
}

// DefaultProfiles возвращает пул fingerprint-профилей по умолчанию.
//
// Клиент выбирает профиль случайно при ротации после транспортного
// сбоя. Пул приватен для клиента и между аккаунтами не разделяется.
func DefaultProfiles() []FingerprintProfile {
	return []FingerprintProfile{
		{
			Name:      "chrome-120",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			CipherSuites: []uint16{
				tls.TLS_AES_128_GCM_SHA256,
				tls.TLS_AES_256_GCM_SHA384,
				tls.TLS_CHACHA20_POLY1305_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
			Curves:     []tls.CurveID{tls.X25519, tls.CurveP256, tls.CurveP384},
			MinVersion: tls.VersionTLS12,
		},
		{
			Name:      "firefox-121",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
			CipherSuites: []uint16{
				tls.TLS_AES_128_GCM_SHA256,
				tls.TLS_CHACHA20_POLY1305_SHA256,
				tls.TLS_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			},
			Curves:     []tls.CurveID{tls.X25519, tls.CurveP256, tls.CurveP521},
			MinVersion: tls.VersionTLS12,
		},
		{
			Name:      "safari-17",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
			CipherSuites: []uint16{
				tls.TLS_AES_128_GCM_SHA256,
				tls.TLS_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			},
			Curves:     []tls.CurveID{tls.X25519, tls.CurveP256},
			MinVersion: tls.VersionTLS12,
		},
		{
			Name:      "edge-120",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			CipherSuites: []uint16{
				tls.TLS_AES_256_GCM_SHA384,
				tls.TLS_AES_128_GCM_SHA256,
				tls.TLS_CHACHA20_POLY1305_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
			Curves:     []tls.CurveID{tls.CurveP256, tls.X25519},
			MinVersion: tls.VersionTLS12,
		},
	}
}
