package httpx

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// EncodingMode — формат передачи заголовков, требуемый endpoint'ом.
type EncodingMode string

const (
	// EncodingStructured — заголовки как обычные HTTP-заголовки
	// (ключ → значение).
	EncodingStructured EncodingMode = "structured"

	// EncodingFlat — заголовки одной строкой "key: value",
	// соединённой переводами строк, в заголовке FlatHeaderName.
	EncodingFlat EncodingMode = "flat"
)

// FlatHeaderName — заголовок-носитель для flat-формата.
const FlatHeaderName = "X-Client-Headers"

// Other возвращает противоположный формат.
func (m EncodingMode) Other() EncodingMode {
	if m == EncodingFlat {
		return EncodingStructured
	}
	return EncodingFlat
}

// EncodingMemory — выученное соответствие endpoint → требуемый формат
// заголовков.
//
// Заполняется инкрементально из ошибок сервера о формате. Приватна
// для одного клиента, между аккаунтами не разделяется. Мутация
// происходит только через Set — единственный контролируемый путь.
type EncodingMemory struct {
	mu    sync.RWMutex
	modes map[string]EncodingMode
}

// NewEncodingMemory создаёт пустую память кодирования.
func NewEncodingMemory() *EncodingMemory {
	return &EncodingMemory{modes: make(map[string]EncodingMode)}
}

// Lookup возвращает выученный формат для endpoint'а.
func (m *EncodingMemory) Lookup(endpoint string) (EncodingMode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mode, ok := m.modes[endpoint]
	return mode, ok
}

// Set запоминает формат для endpoint'а.
func (m *EncodingMemory) Set(endpoint string, mode EncodingMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[endpoint] = mode
}

// Len возвращает количество выученных endpoint'ов.
func (m *EncodingMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.modes)
}

// EndpointKey возвращает ключ памяти кодирования для URL:
// последний сегмент пути без query string. Для пустого пути — хост.
func EndpointKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// encodingRejectionMarkers — фрагменты текста ошибки, по которым
// распознаётся отклонение формата заголовков сервером.
var encodingRejectionMarkers = []string{
	"headers must be a string",
	"headers must be an object",
	"invalid header encoding",
	"malformed headers",
}

// IsEncodingRejection определяет, является ли ответ отклонением
// выбранного формата заголовков.
func IsEncodingRejection(status int, body []byte) bool {
	if status != 400 && status != 422 {
		return false
	}
	text := strings.ToLower(string(body))
	for _, marker := range encodingRejectionMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// flattenHeaders сериализует заголовки в одну строку "key: value"
// с переводами строк. Ключи сортируются для детерминизма.
func flattenHeaders(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(headers[k])
	}
	return b.String()
}
