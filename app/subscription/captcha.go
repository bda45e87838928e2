package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CaptchaVerifier checks a bot-mitigation proof supplied with a subscribe
// request.
type CaptchaVerifier interface {
	Verify(ctx context.Context, captchaToken string) (bool, error)
}

var _ CaptchaVerifier = (*HTTPCaptchaVerifier)(nil)

// HTTPCaptchaVerifier validates captcha responses against a third-party
// verification endpoint (reCAPTCHA wire shape). An empty secret disables
// the check entirely.
type HTTPCaptchaVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewHTTPCaptchaVerifier(secret, verifyURL string) *HTTPCaptchaVerifier {
	return &HTTPCaptchaVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *HTTPCaptchaVerifier) Verify(ctx context.Context, captchaToken string) (bool, error) {
	if v.secret == "" {
		return true, nil
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", captchaToken)

	req, err := http.NewRequestWithContext(ctx, "POST", v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode captcha response: %w", err)
	}

	return result.Success, nil
}
