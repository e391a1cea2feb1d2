package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsPerspectives/internal/config"
	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/ports"
)

const defaultTimeout = 60 * time.Second

// Client implements ports.CompletionClient against OpenAI-compatible
// chat completion APIs (GitHub Models, OpenAI, OpenRouter).
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

var _ ports.CompletionClient = (*Client)(nil)

// NewClient builds a client from configuration. A nil httpClient gets a
// default one honoring the configured timeout.
func NewClient(cfg config.CompletionConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		token:      strings.TrimSpace(cfg.Token),
		httpClient: httpClient,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Usage *domain.TokenUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete posts a system+user conversation and returns the first choice.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if c == nil {
		return domain.Completion{}, fmt.Errorf("completion client is nil")
	}
	if c.token == "" || c.endpoint == "" {
		return domain.Completion{}, fmt.Errorf("completion client misconfigured")
	}
	if strings.TrimSpace(req.Model) == "" {
		return domain.Completion{}, fmt.Errorf("completion request without model")
	}

	body, err := json.Marshal(chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("marshal completion payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Completion{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Completion{}, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(payload)),
		}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Completion{}, fmt.Errorf("decode completion: %w", err)
	}
	if decoded.Error != nil {
		return domain.Completion{}, fmt.Errorf("completion api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	if len(decoded.Choices) == 0 {
		return domain.Completion{}, fmt.Errorf("completion returned no choices")
	}

	text := decoded.Choices[0].Message.Content
	if text == "" {
		text = decoded.Choices[0].Text
	}
	return domain.Completion{Text: text, Usage: decoded.Usage}, nil
}

// ErrRateLimited matches StatusErrors carrying HTTP 429.
var ErrRateLimited = errors.New("rate limited")

// StatusError is a non-2xx answer from the completion service.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion error %s: %s", e.Status, e.Body)
}

// Is makes errors.Is(err, ErrRateLimited) work for 429 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited is the retry predicate for completion calls.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// Error kinds recorded on failed analyses.
const (
	KindRateLimit  = "rate_limit"
	KindHTTPStatus = "http_status"
	KindCanceled   = "canceled"
	KindTransport  = "transport"
)

// ErrorKind classifies a completion failure.
func ErrorKind(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case IsRateLimited(err):
		return KindRateLimit
	case errors.As(err, &statusErr):
		return KindHTTPStatus
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindTransport
	}
}
