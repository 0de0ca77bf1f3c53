// Package ai is a thin client for an OpenAI-compatible chat completions
// endpoint. It only supports the JSON-object response mode the extraction
// and scoring prompts rely on.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/utils"
)

type Client interface {
	// ChatJSON sends one system+user exchange with JSON response format and
	// decodes the assistant message content into out.
	ChatJSON(ctx context.Context, system, user string, out any) error
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

// NewClient builds the live client. It fails when no API key is configured;
// the caller decides whether to fall back to the mock capability.
func NewClient(log *logger.Logger) (Client, error) {
	apiKey := utils.GetEnv("AI_API_KEY", "", nil)
	if apiKey == "" {
		return nil, fmt.Errorf("missing AI_API_KEY")
	}

	baseURL := utils.GetEnv("AI_BASE_URL", "https://api.openai.com", log)
	model := utils.GetEnv("AI_MODEL", "llama-3.1-8b-instant", log)
	timeoutSec := utils.GetEnvAsInt("AI_TIMEOUT_SECONDS", 60, log)
	maxRetries := utils.GetEnvAsInt("AI_MAX_RETRIES", 3, log)

	return &client{
		log:        log.With("client", "AIClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("ai http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}
	var hErr *httpError
	if errors.As(err, &hErr) {
		return isRetryableHTTP(hErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) doOnce(ctx context.Context, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func (c *client) ChatJSON(ctx context.Context, system, user string, out any) error {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	backoff := 1 * time.Second
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw, err := c.doOnce(ctx, body)
		if err == nil {
			var parsed chatResponse
			if uErr := json.Unmarshal(raw, &parsed); uErr != nil {
				return fmt.Errorf("ai decode error: %w", uErr)
			}
			if len(parsed.Choices) == 0 {
				return fmt.Errorf("ai response has no choices")
			}
			content := parsed.Choices[0].Message.Content
			if uErr := json.Unmarshal([]byte(content), out); uErr != nil {
				return fmt.Errorf("ai content is not the expected JSON: %w", uErr)
			}
			return nil
		}

		lastErr = err
		if !isRetryableErr(err) || attempt == c.maxRetries {
			return lastErr
		}

		c.log.Warn("AI call failed, retrying", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitterSleep(backoff)):
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return lastErr
}
