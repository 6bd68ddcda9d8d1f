package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"multiauth/internal/domain"
	"multiauth/internal/timeout"
)

const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Verifier canjea tokens de reCAPTCHA con la clave secreta del sitio.
type Verifier struct {
	logger   *zap.Logger
	secret   string
	endpoint string
	client   *http.Client
}

func NewVerifier(logger *zap.Logger, secret, endpoint string, client *http.Client) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if endpoint == "" {
		endpoint = DefaultVerifyURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Verifier{logger: logger, secret: secret, endpoint: endpoint, client: client}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify devuelve el campo success del endpoint. Cada token se usa una sola vez.
func (v *Verifier) Verify(ctx context.Context, token string, timeoutMs int64) (bool, error) {
	if strings.TrimSpace(v.secret) == "" {
		return false, domain.Misconfigured("recaptcha secret key is required")
	}
	if strings.TrimSpace(token) == "" {
		return false, domain.Invalid("recaptcha token is required")
	}

	return timeout.Run(ctx, timeoutMs, func(ctx context.Context) (bool, error) {
		form := url.Values{}
		form.Set("secret", v.secret)
		form.Set("response", token)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return false, fmt.Errorf("siteverify: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := v.client.Do(req)
		if err != nil {
			return false, &domain.ProviderError{Op: "siteverify", Message: err.Error()}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, fmt.Errorf("siteverify: read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return false, &domain.ProviderError{Op: "siteverify", Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}

		var out siteVerifyResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return false, fmt.Errorf("siteverify: unmarshal response: %w", err)
		}
		if !out.Success {
			v.logger.Info("recaptcha verification failed", zap.Strings("error_codes", out.ErrorCodes))
		}
		return out.Success, nil
	})
}
