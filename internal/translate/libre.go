package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultLibreURL     = "https://libretranslate.com"
	defaultLibreTimeout = 30 * time.Second
)

// implements Service against a LibreTranslate server
type LibreService struct {
	http   *resty.Client
	apiKey string
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
}

type libreError struct {
	Error string `json:"error"`
}

// the API key is optional for self-hosted servers
func NewLibreService(apiKey string, opts Options) (*LibreService, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultLibreURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultLibreTimeout
	}

	c := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &LibreService{http: c, apiKey: apiKey}, nil
}

func (s *LibreService) Translate(ctx context.Context, text, src, dest string) (string, error) {
	var out libreResponse
	var apiErr libreError
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(libreRequest{
			Q:      text,
			Source: libreCode(src),
			Target: libreCode(dest),
			Format: "text",
			APIKey: s.apiKey,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/translate")
	if err != nil {
		return "", fmt.Errorf("libretranslate request failed: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = resp.String()
		}
		return "", fmt.Errorf("libretranslate: %s: %s", resp.Status(), msg)
	}
	return strings.TrimSpace(out.TranslatedText), nil
}

// LibreTranslate knows base languages plus a few script variants
func libreCode(code string) string {
	switch strings.ToLower(code) {
	case "", "auto":
		return "auto"
	case "zh-tw", "zh-hant":
		return "zt"
	}
	return BaseCode(code)
}
