// SPDX-License-Identifier: Apache-2.0

// Package config loads layered settings: defaults, a YAML file, an optional
// profile overlay, INFOSEEK_ environment variables and --set overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "INFOSEEK_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Agent     AgentConfig     `koanf:"agent"`
	Search    SearchConfig    `koanf:"search"`
	Browse    BrowseConfig    `koanf:"browse"`
	MCP       MCPConfig       `koanf:"mcp"`
	Batch     BatchConfig     `koanf:"batch"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text, none
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"` // openai, azure, deepseek, gemini, anthropic, qwen, ollama
	APIType     string  `koanf:"api_type"`
	Model       string  `koanf:"model"`
	FastModel   string  `koanf:"fast_model"`
	BaseURL     string  `koanf:"base_url"`
	APIKey      string  `koanf:"api_key"`
	APIVersion  string  `koanf:"api_version"`
	Temperature float64 `koanf:"temperature"`
	// TimeoutSeconds bounds a single oracle call.
	TimeoutSeconds int `koanf:"timeout_seconds"`
	MaxRetries     int `koanf:"max_retries"`
}

type AgentConfig struct {
	Name         string   `koanf:"name"`
	Bio          string   `koanf:"bio"`
	Instructions string   `koanf:"instructions"`
	ProfilePath  string   `koanf:"profile_path"`
	MaxIterNum   int      `koanf:"max_iter_num"`
	Tools        []string `koanf:"tools"`
	Lang         string   `koanf:"lang"`
	LangAware    bool     `koanf:"lang_aware"`
	MaxTokensNum int      `koanf:"max_tokens_num"`
	MaxWebpages  int      `koanf:"max_webpage_num"`
	WithoutTool  bool     `koanf:"wo_tool"`
	PrintConsole bool     `koanf:"print_to_console"`
}

type SearchConfig struct {
	Type           string `koanf:"type"` // ddg, google, bing, yahoo, brave, google_cse
	MaxResults     int    `koanf:"max_results"`
	MaxRetries     int    `koanf:"max_retries"`
	SerperAPIKey   string `koanf:"serper_api_key"`
	SerpAPIKey     string `koanf:"serpapi_api_key"`
	BraveAPIKey    string `koanf:"brave_api_key"`
	GoogleAPIKey   string `koanf:"google_api_key"`
	GoogleCSEID    string `koanf:"google_cse_id"`
	Proxy          string `koanf:"proxy"`
	CrawlerEnabled bool   `koanf:"crawler_enabled"`
}

type BrowseConfig struct {
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	MaxChars       int    `koanf:"max_chars"`
	ChunkChars     int    `koanf:"chunk_chars"`
	RenderEnabled  bool   `koanf:"render_enabled"`
	Proxy          string `koanf:"proxy"`
}

// MCPConfig lists external tool servers keyed by name.
type MCPConfig struct {
	Servers map[string]MCPServerConfig `koanf:"servers"`
}

type MCPServerConfig struct {
	Transport string   `koanf:"transport"` // stdio, http
	Command   string   `koanf:"command"`
	Args      []string `koanf:"args"`
	Env       []string `koanf:"env"`
	URL       string   `koanf:"url"`
}

type BatchConfig struct {
	Workers   int    `koanf:"workers"`
	MaxRounds int    `koanf:"max_rounds"`
	Output    string `koanf:"output"`
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
	ServiceName  string `koanf:"service_name"`
}

// Profile returns the agent identity and tool selection.
func (c AgentConfig) Profile() core.Profile {
	return core.Profile{
		Name:         c.Name,
		Bio:          c.Bio,
		Instructions: c.Instructions,
		MaxIterNum:   c.MaxIterNum,
		Tools:        append([]string(nil), c.Tools...),
	}
}

func defaults() map[string]any {
	return map[string]any{
		"log.level":  "info",
		"log.format": "text",

		"llm.provider":        "openai",
		"llm.model":           "gpt-4o",
		"llm.temperature":     0.0,
		"llm.timeout_seconds": 120,
		"llm.max_retries":     3,

		"agent.max_iter_num":     core.DefaultMaxIterNum,
		"agent.tools":            []string{core.ToolsAuto},
		"agent.lang":             "en",
		"agent.lang_aware":       false,
		"agent.max_tokens_num":   4096,
		"agent.max_webpage_num":  5,
		"agent.wo_tool":          false,
		"agent.print_to_console": false,

		"search.type":            "ddg",
		"search.max_results":     5,
		"search.max_retries":     5,
		"search.crawler_enabled": true,

		"browse.timeout_seconds": 30,
		"browse.max_chars":       20000,
		"browse.chunk_chars":     4000,
		"browse.render_enabled":  true,

		"batch.workers":    3,
		"batch.max_rounds": 3,

		"telemetry.enabled":      false,
		"telemetry.exporter":     "none",
		"telemetry.service_name": "infoseek",
	}
}

// Load reads defaults, then path (if any), then the environment.
func Load(path string) (*Config, error) {
	return load(path, "", nil)
}

// LoadWithProfile is Load with config.<profile>.yaml merged over the base
// file when it exists next to it.
func LoadWithProfile(path, profile string) (*Config, error) {
	return load(path, profile, nil)
}

// LoadWithCLI understands --config, --profile (alias --env) and repeated
// --set key=value. Values that parse as JSON are used as such.
func LoadWithCLI(args []string) (*Config, error) {
	opts, overrides, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(opts.path, opts.profile, overrides)
}

func load(path, profile string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if overlay := profileConfigPath(path, profile); overlay != "" {
			if err := k.Load(file.Provider(overlay), parserFor(overlay)); err != nil {
				return nil, fmt.Errorf("load profile config %s: %w", overlay, err)
			}
		}
	}

	// INFOSEEK_LLM_MODEL -> llm.model, INFOSEEK_AGENT_MAX_ITER_NUM -> agent.max_iter_num
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps the first underscore to a section separator and keeps the rest.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + rest
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return jsonParser{}
	}
	return yaml.Parser()
}

// jsonParser decodes JSON config files; YAML is the default format.
type jsonParser struct{}

func (jsonParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (jsonParser) Marshal(o map[string]interface{}) ([]byte, error) {
	return json.Marshal(o)
}

// profileConfigPath returns dir/name.<profile>.ext when that file exists.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(filepath.Base(base), ext)
	candidate := filepath.Join(filepath.Dir(base), name+"."+profile+ext)
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

type cliOptions struct {
	path    string
	profile string
}

func parseCLIOverrides(args []string) (cliOptions, map[string]any, error) {
	var opts cliOptions
	overrides := map[string]any{}

	value := func(i *int, flag, arg string) (string, error) {
		if v, ok := strings.CutPrefix(arg, flag+"="); ok {
			return v, nil
		}
		if *i+1 >= len(args) {
			return "", fmt.Errorf("missing value for %s", flag)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		flag, _, _ := strings.Cut(arg, "=")
		switch flag {
		case "--config":
			v, err := value(&i, flag, arg)
			if err != nil {
				return opts, nil, err
			}
			opts.path = v
		case "--profile", "--env":
			v, err := value(&i, flag, arg)
			if err != nil {
				return opts, nil, err
			}
			opts.profile = v
		case "--set":
			v, err := value(&i, flag, arg)
			if err != nil {
				return opts, nil, err
			}
			key, raw, ok := strings.Cut(v, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return opts, nil, fmt.Errorf("invalid --set value %q, want key=value", v)
			}
			overrides[strings.TrimSpace(key)] = overrideValue(raw)
		}
	}
	return opts, overrides, nil
}

// overrideValue decodes JSON objects, arrays, numbers and booleans; anything
// else stays a string.
func overrideValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
