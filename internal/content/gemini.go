package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"outreach_engine/internal/config"
)

// Gemini generates posts and replies with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	now    func() time.Time
}

func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, now: time.Now}, nil
}

func (g *Gemini) Generate(ctx context.Context, industry, topic string) (string, error) {
	return g.complete(ctx, postPrompt(industry, strings.TrimSpace(topic), g.now(), 0.8))
}

func (g *Gemini) Reply(ctx context.Context, message string) (string, error) {
	return g.complete(ctx, replyPrompt(message))
}

func (g *Gemini) complete(ctx context.Context, p prompt) (string, error) {
	temperature := float32(p.temperature)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.system, genai.RoleUser),
		Temperature:       &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}
