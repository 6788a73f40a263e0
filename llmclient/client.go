// Package llmclient wraps an OpenAI-compatible chat completion endpoint
// for the concept extractor (C3). It mirrors the provider-routing shape
// used elsewhere in this codebase so operators can point it at DeepSeek,
// SiliconFlow, Z.AI, OpenRouter, Ollama, or plain OpenAI without code
// changes.
package llmclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Config configures a Service's provider, model, and request shape.
type Config struct {
	Provider    string // deepseek, openai, siliconflow, ollama, zai, openrouter, dashscope
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default 2048
	Temperature float32 // default 0.2 (concept extraction wants low variance)
	Timeout     int     // seconds, default 60
}

// Service extracts structured content from a chat completion call.
type Service interface {
	// Chat sends a single system/user exchange and returns the raw
	// assistant content. Callers are responsible for parsing it.
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type service struct {
	client      *openai.Client
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int
}

// NewService builds a Service from cfg, resolving well-known providers to
// their default base URLs when cfg.BaseURL is empty.
func NewService(cfg Config) (Service, error) {
	httpClient := newHTTPClient()

	var clientConfig openai.ClientConfig
	switch cfg.Provider {
	case "deepseek":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = orDefault(cfg.BaseURL, "https://api.deepseek.com")
	case "siliconflow":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = orDefault(cfg.BaseURL, "https://api.siliconflow.cn/v1")
	case "zai":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = orDefault(cfg.BaseURL, "https://open.bigmodel.cn/api/paas/v4")
	case "dashscope":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = orDefault(cfg.BaseURL, "https://dashscope.aliyuncs.com/compatible-mode/v1")
	case "openrouter":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = orDefault(cfg.BaseURL, "https://openrouter.ai/api/v1")
	case "ollama":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = orDefault(cfg.BaseURL, "http://localhost:11434/v1")
	case "openai":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	default:
		slog.Info("llmclient: using generic OpenAI-compatible provider", "provider", cfg.Provider)
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	}
	clientConfig.HTTPClient = httpClient

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
	}, nil
}

func (s *service) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	slog.Debug("llmclient: chat request", "provider", s.provider, "model", s.model, "prompt_bytes", len(userPrompt))

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llmclient: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llmclient: empty response from provider %q", s.provider)
	}

	return resp.Choices[0].Message.Content, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 90 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
