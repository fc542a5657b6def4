package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"outreach_engine/internal/config"
	"outreach_engine/internal/logbus"
)

// OpenAI generates posts and replies through the chat completions endpoint.
type OpenAI struct {
	cfg    config.OpenAIConfig
	bus    *logbus.Bus
	client *resty.Client
	now    func() time.Time
}

func NewOpenAI(cfg config.OpenAIConfig, bus *logbus.Bus) *OpenAI {
	o := &OpenAI{cfg: cfg, bus: bus, now: time.Now}
	o.client = resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout()).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			if r == nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	o.client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if o.bus != nil {
			o.bus.Log("debug", "http request", map[string]any{
				"method": req.Method,
				"url":    req.URL,
			})
		}
		return nil
	})
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (o *OpenAI) Generate(ctx context.Context, industry, topic string) (string, error) {
	return o.complete(ctx, postPrompt(industry, strings.TrimSpace(topic), o.now(), o.cfg.Temperature))
}

func (o *OpenAI) Reply(ctx context.Context, message string) (string, error) {
	return o.complete(ctx, replyPrompt(message))
}

func (o *OpenAI) complete(ctx context.Context, p prompt) (string, error) {
	if o.cfg.APIKey == "" {
		return "", errors.New("openai: api key is not configured")
	}
	var (
		out    chatResponse
		apiErr apiError
	)
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: o.cfg.Model,
			Messages: []chatMessage{
				{Role: "system", Content: p.system},
				{Role: "user", Content: p.user},
			},
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: p.temperature,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("openai: %s", msg)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: empty completion")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai: empty completion")
	}
	return text, nil
}
