package anthropic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tributary-ai/routing-engine/internal/providers"
	"github.com/tributary-ai/routing-engine/internal/types"
)

// defaultMaxTokens applies when the request does not cap output; the
// Anthropic API requires an explicit limit.
const defaultMaxTokens = 1024

// Config holds Anthropic-specific configuration.
type Config struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// UnmarshalYAML accepts the timeout in time.ParseDuration notation ("30s").
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	}{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.APIKey = raw.APIKey
	c.BaseURL = raw.BaseURL
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Provider adapts the Anthropic Messages API to the uniform provider
// interface.
type Provider struct {
	client *anthropic.Client
	config *Config
	logger *logrus.Logger
}

// New creates an Anthropic provider instance.
func New(config *Config, logger *logrus.Logger) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}
	client := anthropic.NewClient(opts...)
	return &Provider{
		client: &client,
		config: config,
		logger: logger,
	}
}

// Name returns the provider tag used in model profiles.
func (p *Provider) Name() string {
	return "anthropic"
}

// Generate runs a single-turn message request against modelID.
func (p *Provider) Generate(ctx context.Context, modelID, prompt string, params types.GenerationParams) (*providers.GenerationResult, error) {
	maxTokens := int64(defaultMaxTokens)
	if params.MaxTokens != nil && *params.MaxTokens > 0 {
		maxTokens = int64(*params.MaxTokens)
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if params.Temperature != nil {
		req.Temperature = anthropic.Float(*params.Temperature)
	}
	if params.TopP != nil {
		req.TopP = anthropic.Float(*params.TopP)
	}
	if len(params.Stop) > 0 {
		req.StopSequences = params.Stop
	}

	start := time.Now()
	resp, err := p.client.Messages.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return nil, p.classify(modelID, err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, &providers.ProviderError{
			Provider: p.Name(),
			ModelID:  modelID,
			Kind:     providers.ErrInvalidResponse,
			Err:      fmt.Errorf("response contained no text blocks"),
		}
	}

	return &providers.GenerationResult{
		Text:      text,
		TokensIn:  int(resp.Usage.InputTokens),
		TokensOut: int(resp.Usage.OutputTokens),
		LatencyMS: latency.Milliseconds(),
	}, nil
}

// classify maps SDK errors onto the engine's provider error taxonomy.
func (p *Provider) classify(modelID string, err error) *providers.ProviderError {
	kind := providers.ErrUnavailable

	var apiErr *anthropic.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = providers.ErrTimeout
	case errors.As(err, &apiErr):
		switch apiErr.StatusCode {
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
	}).Warn("Anthropic generation failed")

	return &providers.ProviderError{Provider: p.Name(), ModelID: modelID, Kind: kind, Err: err}
}
