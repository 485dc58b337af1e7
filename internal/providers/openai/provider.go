package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tributary-ai/routing-engine/internal/providers"
	"github.com/tributary-ai/routing-engine/internal/types"
)

// Config holds OpenAI-specific configuration.
type Config struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	OrgID   string        `yaml:"org_id"`
	Timeout time.Duration `yaml:"timeout"`
}

// UnmarshalYAML accepts the timeout in time.ParseDuration notation ("30s").
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		OrgID   string `yaml:"org_id"`
		Timeout string `yaml:"timeout"`
	}{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		OrgID:   c.OrgID,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.APIKey = raw.APIKey
	c.BaseURL = raw.BaseURL
	c.OrgID = raw.OrgID
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Provider adapts the OpenAI chat completion API to the uniform provider
// interface.
type Provider struct {
	client *openai.Client
	config *Config
	logger *logrus.Logger
}

// New creates an OpenAI provider instance.
func New(config *Config, logger *logrus.Logger) *Provider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.OrgID != "" {
		clientConfig.OrgID = config.OrgID
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}
}

// Name returns the provider tag used in model profiles.
func (p *Provider) Name() string {
	return "openai"
}

// Generate runs a single-turn chat completion against modelID.
func (p *Provider) Generate(ctx context.Context, modelID, prompt string, params types.GenerationParams) (*providers.GenerationResult, error) {
	req := openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = float32(*params.Temperature)
	}
	if params.TopP != nil {
		req.TopP = float32(*params.TopP)
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return nil, p.classify(modelID, err)
	}

	if len(resp.Choices) == 0 {
		return nil, &providers.ProviderError{
			Provider: p.Name(),
			ModelID:  modelID,
			Kind:     providers.ErrInvalidResponse,
			Err:      fmt.Errorf("response contained no choices"),
		}
	}

	return &providers.GenerationResult{
		Text:      resp.Choices[0].Message.Content,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
		LatencyMS: latency.Milliseconds(),
	}, nil
}

// classify maps SDK errors onto the engine's provider error taxonomy.
func (p *Provider) classify(modelID string, err error) *providers.ProviderError {
	kind := providers.ErrUnavailable

	var apiErr *openai.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = providers.ErrTimeout
	case errors.As(err, &apiErr):
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			kind = providers.ErrAuthFailure
		case 429:
			kind = providers.ErrRateLimited
		case 400, 404, 422:
			kind = providers.ErrInvalidRequest
		}
	}

	p.logger.WithError(err).WithFields(logrus.Fields{
		"model": modelID,
		"kind":  kind,
	}).Warn("OpenAI generation failed")

	return &providers.ProviderError{Provider: p.Name(), ModelID: modelID, Kind: kind, Err: err}
}
