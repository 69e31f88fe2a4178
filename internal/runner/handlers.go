package runner

import (
	"context"
	"fmt"
	"net/http"
)

// Ключи скользящего состояния между задачами.
const (
	// KeyAuthToken — токен, полученный задачей login.
	KeyAuthToken = "auth_token"
)

// NewLoginHandler возвращает обработчик аутентификационного
// рукопожатия: nonce → подпись → токен.
//
// Последовательность вызовов против baseURL:
//
//	GET  /auth/nonce?address=0x...   → {"nonce": "..."}
//	POST /auth/login                 → {"token": "..."}
//
// Подпись проверяется локально перед отправкой: расхождение
// означает повреждённый ключ и не подлежит retry у сервера.
func NewLoginHandler(baseURL string) Handler {
	return func(ctx context.Context, rc *Context) (any, error) {
		resp, err := rc.Client.Send(ctx, http.MethodGet,
			fmt.Sprintf("%s/auth/nonce?address=%s", baseURL, rc.Account.Address), nil, nil)
		if err != nil {
			return nil, err
		}
		if resp.Status != http.StatusOK {
			return nil, fmt.Errorf("%w: nonce request returned HTTP %d", ErrHandler, resp.Status)
		}

		nonce := jsonField(resp.Body, "nonce")
		if nonce == "" {
			return nil, fmt.Errorf("%w: nonce missing in response", ErrHandler)
		}

		message := []byte(fmt.Sprintf("cohort login\naddress: %s\nnonce: %s", rc.Account.Address, nonce))
		signature, err := rc.Signer.Sign(message)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandler, err)
		}
		if !rc.Signer.Verify(message, signature) {
			return nil, Fatal(fmt.Errorf("signature self-verification failed for %s", rc.Account.Address))
		}

		resp, err = rc.Client.Send(ctx, http.MethodPost, baseURL+"/auth/login", map[string]any{
			"address":   rc.Account.Address,
			"nonce":     nonce,
			"signature": fmt.Sprintf("0x%x", signature),
		}, nil)
		if err != nil {
			return nil, err
		}
		if resp.Status != http.StatusOK {
			return nil, fmt.Errorf("%w: login returned HTTP %d", ErrHandler, resp.Status)
		}

		token := jsonField(resp.Body, "token")
		if token == "" {
			return nil, fmt.Errorf("%w: token missing in response", ErrHandler)
		}

		rc.Set(KeyAuthToken, token)
		return map[string]any{"token": token}, nil
	}
}

// NewCallHandler возвращает обработчик одного аутентифицированного
// вызова. Токен задачи login подставляется в Authorization.
func NewCallHandler(method, url string, body any) Handler {
	return func(ctx context.Context, rc *Context) (any, error) {
		headers := map[string]string{}
		if token := rc.GetString(KeyAuthToken); token != "" {
			headers["Authorization"] = "Bearer " + token
		}

		resp, err := rc.Client.Send(ctx, method, url, body, headers)
		if err != nil {
			return nil, err
		}
		if resp.Status >= 400 {
			return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrHandler, url, resp.Status)
		}

		return resp.Body, nil
	}
}

// NewCaptchaGateHandler возвращает обработчик шага, защищённого
// графической капчей: изображение запрашивается у платформы,
// решение отправляется вместе с ответом.
//
// Исчерпание solver'а фатально для последовательности (контракт
// коллаборатора, см. captcha.ErrSolverExhausted).
func NewCaptchaGateHandler(challengeURL, submitURL string) Handler {
	return func(ctx context.Context, rc *Context) (any, error) {
		headers := map[string]string{}
		if token := rc.GetString(KeyAuthToken); token != "" {
			headers["Authorization"] = "Bearer " + token
		}

		resp, err := rc.Client.Send(ctx, http.MethodGet, challengeURL, nil, headers)
		if err != nil {
			return nil, err
		}
		if resp.Status != http.StatusOK {
			return nil, fmt.Errorf("%w: challenge returned HTTP %d", ErrHandler, resp.Status)
		}

		image := jsonField(resp.Body, "image")
		if image == "" {
			return nil, fmt.Errorf("%w: challenge image missing", ErrHandler)
		}
		challengeID := jsonField(resp.Body, "challenge_id")

		text, err := rc.Captcha.SolveImage(ctx, image)
		if err != nil {
			// ErrSolverExhausted распознаётся IsFatal как фатальная.
			return nil, err
		}

		resp, err = rc.Client.Send(ctx, http.MethodPost, submitURL, map[string]any{
			"challenge_id": challengeID,
			"solution":     text,
		}, headers)
		if err != nil {
			return nil, err
		}
		if resp.Status != http.StatusOK {
			return nil, fmt.Errorf("%w: captcha submit returned HTTP %d", ErrHandler, resp.Status)
		}

		return resp.Body, nil
	}
}

// RegisterDefaults регистрирует встроенные обработчики платформы
// с базовым URL.
func RegisterDefaults(r *Registry, baseURL string) {
	r.Register("login", NewLoginHandler(baseURL))
	r.Register("profile", NewCallHandler(http.MethodGet, baseURL+"/profile", nil))
	r.Register("checkin", NewCallHandler(http.MethodPost, baseURL+"/checkin", map[string]any{}))
	r.Register("captcha_gate", NewCaptchaGateHandler(baseURL+"/captcha/challenge", baseURL+"/captcha/submit"))
}

// jsonField извлекает строковое поле из распарсенного JSON-тела.
func jsonField(body any, key string) string {
	m, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
