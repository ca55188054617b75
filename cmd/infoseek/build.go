// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/agent"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/config"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/llm"
	infomcp "github.com/YunjiaXi/InfoDeepSeek/pkg/mcp"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/resilience"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools/browse"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools/render"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools/search"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools/timedelta"
	"github.com/YunjiaXi/InfoDeepSeek/providers/anthropic"
	"github.com/YunjiaXi/InfoDeepSeek/providers/gemini"
	"github.com/YunjiaXi/InfoDeepSeek/providers/openai"
	"github.com/YunjiaXi/InfoDeepSeek/providers/qwen"
)

const deepseekBaseURL = "https://api.deepseek.com"

// newProvider selects the oracle backend named by cfg.Provider.
func newProvider(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai", "":
		return openai.New(
			openai.WithModel(cfg.Model),
			openai.WithAPIKey(cfg.APIKey),
			openai.WithBaseURL(cfg.BaseURL),
		), nil
	case "azure":
		if cfg.BaseURL == "" {
			return nil, errors.New(errors.CodeInvalidInput, "azure needs llm.base_url", nil)
		}
		return openai.New(
			openai.WithModel(cfg.Model),
			openai.WithAzure(cfg.BaseURL, orDefault(cfg.APIVersion, "2024-06-01"), cfg.APIKey),
		), nil
	case "deepseek":
		return openai.New(
			openai.WithModel(cfg.Model),
			openai.WithAPIKey(cfg.APIKey),
			openai.WithBaseURL(orDefault(cfg.BaseURL, deepseekBaseURL)),
		), nil
	case "gemini":
		return gemini.New(ctx, cfg.APIKey, gemini.WithModel(cfg.Model))
	case "anthropic":
		return anthropic.New(
			anthropic.WithModel(cfg.Model),
			anthropic.WithAPIKey(cfg.APIKey),
			anthropic.WithBaseURL(cfg.BaseURL),
		), nil
	case "qwen":
		opts := []qwen.Option{qwen.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, qwen.WithBaseURL(cfg.BaseURL))
		}
		return qwen.New(cfg.APIKey, opts...), nil
	case "ollama":
		return llm.NewOllama(cfg.BaseURL), nil
	default:
		return nil, errors.New(errors.CodeInvalidInput, "unknown llm provider", nil).
			WithContext("provider", cfg.Provider)
	}
}

// newOracle wraps the provider with the retry and lockout policy.
func newOracle(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*llm.Oracle, error) {
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry = retry.WithMaxAttempts(cfg.MaxRetries)
	}
	opts := []llm.OracleOption{
		llm.WithDefaultModel(cfg.Model),
		llm.WithProviderName(cfg.Provider),
		llm.WithTemperature(cfg.Temperature),
		llm.WithRetry(retry),
		llm.WithLogger(logger),
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, llm.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	return llm.NewOracle(provider, opts...), nil
}

// catalogue is the set of tools offered to the registry plus the MCP
// connections that must be closed afterwards.
type catalogue struct {
	tools   []tools.Tool
	clients []*infomcp.Client
}

func (c *catalogue) Close() error {
	var first error
	for _, client := range c.clients {
		if err := client.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// buildCatalogue builds the built-in tools and connects to MCP servers.
// A server that cannot be reached is logged and skipped.
func buildCatalogue(ctx context.Context, cfg *config.Config, oracle llm.Invoker, logger *slog.Logger) (*catalogue, error) {
	cat := &catalogue{}

	searchTool, err := newSearchTool(cfg, logger)
	if err != nil {
		return nil, err
	}
	cat.tools = append(cat.tools, searchTool, newBrowseTool(cfg, oracle, logger), timedelta.New(time.Now))

	names := make([]string, 0, len(cfg.MCP.Servers))
	for name := range cfg.MCP.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		client, err := connectMCP(ctx, cfg.MCP.Servers[name])
		if err != nil {
			logger.WarnContext(ctx, "cli.mcp.connect_failed",
				slog.String("server", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		remote, err := infomcp.Tools(ctx, client)
		if err != nil {
			logger.WarnContext(ctx, "cli.mcp.list_failed",
				slog.String("server", name),
				slog.String("error", err.Error()),
			)
			_ = client.Close()
			continue
		}
		cat.clients = append(cat.clients, client)
		cat.tools = append(cat.tools, remote...)
	}
	return cat, nil
}

func newSearchTool(cfg *config.Config, logger *slog.Logger) (*search.Tool, error) {
	sc := cfg.Search
	client, err := search.HTTPClient(sc.Proxy, 20*time.Second)
	if err != nil {
		return nil, err
	}
	backend, err := search.NewBackend(sc.Type, search.Credentials{
		SerperKey:    sc.SerperAPIKey,
		SerpAPIKey:   sc.SerpAPIKey,
		BraveKey:     sc.BraveAPIKey,
		GoogleAPIKey: sc.GoogleAPIKey,
		GoogleCSEID:  sc.GoogleCSEID,
	}, client)
	if err != nil {
		return nil, err
	}
	opts := []search.Option{
		search.WithMaxResults(sc.MaxResults),
		search.WithMaxRetries(sc.MaxRetries),
		search.WithLogger(logger),
	}
	if sc.CrawlerEnabled {
		opts = append(opts, search.WithCrawler(search.NewCrawler(sc.Type, render.NewChrome(render.DefaultTimeout, sc.Proxy))))
	}
	return search.New(backend, opts...), nil
}

func newBrowseTool(cfg *config.Config, oracle llm.Invoker, logger *slog.Logger) *browse.Tool {
	bc := cfg.Browse
	timeout := time.Duration(bc.TimeoutSeconds) * time.Second
	opts := []browse.Option{
		browse.WithOracle(oracle, fastModel(cfg.LLM)),
		browse.WithLang(cfg.Agent.Lang),
		browse.WithLimits(bc.MaxChars, bc.ChunkChars),
		browse.WithLogger(logger),
	}
	if client, err := search.HTTPClient(bc.Proxy, timeout); err == nil {
		opts = append(opts, browse.WithHTTPClient(client))
	}
	if bc.RenderEnabled {
		opts = append(opts, browse.WithRenderer(render.NewChrome(timeout, bc.Proxy)))
	}
	return browse.New(opts...)
}

func connectMCP(ctx context.Context, srv config.MCPServerConfig) (*infomcp.Client, error) {
	switch strings.ToLower(srv.Transport) {
	case "http", "streamable-http", "streamable_http":
		if srv.URL == "" {
			return nil, errors.New(errors.CodeInvalidInput, "mcp http server needs a url", nil)
		}
		return infomcp.NewClientWithStreamableHTTP(ctx, srv.URL)
	case "stdio", "":
		if srv.Command == "" {
			return nil, errors.New(errors.CodeInvalidInput, "mcp stdio server needs a command", nil)
		}
		return infomcp.NewClientWithStdio(ctx, srv.Command, srv.Args, srv.Env)
	default:
		return nil, errors.New(errors.CodeInvalidInput, "unknown mcp transport", nil).
			WithContext("transport", srv.Transport)
	}
}

// agentOptions turns the agent section into agent options.
func agentOptions(cfg *config.Config, profile core.Profile, cat *catalogue, logger *slog.Logger, echo io.Writer) []agent.Option {
	opts := []agent.Option{
		agent.WithProfile(profile),
		agent.WithLang(cfg.Agent.Lang, cfg.Agent.LangAware),
		agent.WithModels(cfg.LLM.Model, fastModel(cfg.LLM)),
		agent.WithMaxTokens(cfg.Agent.MaxTokensNum),
		agent.WithMaxWebpages(cfg.Agent.MaxWebpages),
		agent.WithOfflineConclusion(cfg.Agent.WithoutTool),
		agent.WithLogger(logger),
	}
	if cat != nil {
		opts = append(opts, agent.WithTools(cat.tools...))
	}
	if echo != nil {
		opts = append(opts, agent.WithEcho(echo))
	}
	return opts
}

// resolveProfile starts from the agent section and lets a profile file
// override the identity fields. Budget and tools stay with the config.
func resolveProfile(cfg config.AgentConfig) (core.Profile, error) {
	profile := cfg.Profile()
	if cfg.ProfilePath == "" {
		return profile, nil
	}
	fromFile, err := core.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return profile, err
	}
	if fromFile.Name != "" {
		profile.Name = fromFile.Name
	}
	if fromFile.Bio != "" {
		profile.Bio = fromFile.Bio
	}
	if fromFile.Instructions != "" {
		profile.Instructions = fromFile.Instructions
	}
	return profile, nil
}

// newAgent wires oracle, tools and agent. The returned catalogue must be closed.
func (a *app) newAgent(ctx context.Context, echo io.Writer) (*agent.Agent, *catalogue, error) {
	oracle, err := newOracle(ctx, a.cfg.LLM, a.logger)
	if err != nil {
		return nil, nil, err
	}
	profile, err := resolveProfile(a.cfg.Agent)
	if err != nil {
		return nil, nil, err
	}
	cat, err := buildCatalogue(ctx, a.cfg, oracle, a.logger)
	if err != nil {
		return nil, nil, err
	}
	ag, err := agent.New(oracle, agentOptions(a.cfg, profile, cat, a.logger, echo)...)
	if err != nil {
		_ = cat.Close()
		return nil, nil, err
	}
	return ag, cat, nil
}

func fastModel(cfg config.LLMConfig) string {
	return orDefault(cfg.FastModel, cfg.Model)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func describeProvider(cfg config.LLMConfig) string {
	return fmt.Sprintf("%s/%s", orDefault(cfg.Provider, "openai"), cfg.Model)
}
