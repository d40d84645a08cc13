package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dotted/internal/config"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("missing GEMINI_MODEL")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		timeout:     cfg.Timeout,
		logger:      logger.Named("gemini"),
	}, nil
}

// SuggestDishes asks Gemini for JSON-only dish ideas.
func (g *GeminiClient) SuggestDishes(ctx context.Context, req SuggestRequest) ([]DishIdea, error) {
	if req.Count <= 0 {
		return nil, nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(BuildSuggestionPrompt(req)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr(g.temperature),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	output := resp.Text()
	g.logger.Debug("gemini response",
		zap.String("model", g.model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("bytes", len(output)),
	)
	if output == "" {
		return nil, errors.New("empty gemini response")
	}

	ideas, err := ParseSuggestions(output)
	if err != nil {
		return nil, err
	}
	if len(ideas) > req.Count {
		ideas = ideas[:req.Count]
	}
	return ideas, nil
}
