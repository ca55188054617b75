// SPDX-License-Identifier: Apache-2.0

// Package openai provides the OpenAI-compatible oracle backend. It serves the
// OpenAI API, Azure OpenAI deployments and any vendor that speaks the same
// chat completions protocol behind a custom base URL (DeepSeek and others).
package openai

import (
	"context"
	"fmt"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// Provider implements llm.Provider for chat completions endpoints.
type Provider struct {
	client openai.Client
	model  string
	opts   []option.RequestOption
}

// Option configures the Provider.
type Option func(*Provider)

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		if url != "" {
			p.opts = append(p.opts, option.WithBaseURL(url))
		}
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) {
		if apiKey != "" {
			p.opts = append(p.opts, option.WithAPIKey(apiKey))
		}
	}
}

// WithAzure targets an Azure OpenAI resource.
func WithAzure(endpoint, apiVersion, apiKey string) Option {
	return func(p *Provider) {
		p.opts = append(p.opts, azure.WithEndpoint(endpoint, apiVersion), azure.WithAPIKey(apiKey))
	}
}

// WithMaxRetries sets the SDK level retry count. The oracle retries on its
// own, so the default is zero.
func WithMaxRetries(n int) Option {
	return func(p *Provider) {
		p.opts = append(p.opts, option.WithMaxRetries(n))
	}
}

// New creates a new provider. Without WithAPIKey the key is read from
// OPENAI_API_KEY.
func New(opts ...Option) *Provider {
	p := &Provider{
		model: "gpt-4o",
		opts:  []option.RequestOption{option.WithMaxRetries(0)},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = openai.NewClient(p.opts...)
	return p
}

// Model returns the default model.
func (p *Provider) Model() string {
	return p.model
}

// Chat implements llm.Provider.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, convertMessage(msg))
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	return convertResponse(completion), nil
}

func convertMessage(msg llm.Message) openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case llm.RoleSystem:
		return openai.SystemMessage(msg.Content)
	case llm.RoleAssistant:
		return openai.AssistantMessage(msg.Content)
	default:
		return openai.UserMessage(msg.Content)
	}
}

func convertResponse(completion *openai.ChatCompletion) *llm.ChatResponse {
	resp := &llm.ChatResponse{
		Usage: llm.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	if len(completion.Choices) > 0 {
		choice := completion.Choices[0]
		resp.Content = choice.Message.Content
		if choice.FinishReason == "content_filter" && resp.Content == "" {
			resp.Content = llm.ContentFilteredResponse
		}
	}
	return resp
}

var _ llm.Provider = (*Provider)(nil)
