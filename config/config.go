// Package config loads the canvas settings from a TOML or JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"article_canvas/topics"
)

// Config holds the server, model and publishing settings.
type Config struct {
	ServerAddr string `toml:"server_addr" json:"server_addr,omitempty"`
	DataDir    string `toml:"data_dir" json:"data_dir,omitempty"`
	Verbose    bool   `toml:"verbose" json:"verbose,omitempty"`

	LLM LLMConfig `toml:"llm" json:"llm"`
	// TopicModel, when set, is tried before LLM for topic suggestions,
	// typically a small local model.
	TopicModel *LLMConfig    `toml:"topic_model" json:"topic_model,omitempty"`
	GitHub     GitHubConfig  `toml:"github" json:"github"`
	Feeds      []topics.Feed `toml:"feeds" json:"feeds,omitempty"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-" json:"-"`
}

type LLMConfig struct {
	Provider  string `toml:"provider" json:"provider,omitempty"`
	Model     string `toml:"model" json:"model,omitempty"`
	APIKey    string `toml:"api_key" json:"api_key,omitempty"`
	APIKeyEnv string `toml:"api_key_env" json:"api_key_env,omitempty"`
	BaseURL   string `toml:"base_url" json:"base_url,omitempty"`
}

type GitHubConfig struct {
	Token    string `toml:"token" json:"token,omitempty"`
	TokenEnv string `toml:"token_env" json:"token_env,omitempty"`
	Repo     string `toml:"repo" json:"repo,omitempty"`
	Branch   string `toml:"branch" json:"branch,omitempty"`
	BaseURL  string `toml:"base_url" json:"base_url,omitempty"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServerAddr: ":8080",
		DataDir:    "~/.article-canvas/data",
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		GitHub: GitHubConfig{
			TokenEnv: "GITHUB_TOKEN",
			Branch:   "main",
		},
		Feeds: append([]topics.Feed(nil), topics.DefaultFeeds...),
	}
}

// Load reads path, or the first config found in the standard locations when
// path is empty. With no file at all the defaults are returned. Files ending
// in .json are read as JSON, anything else as TOML.
func Load(path string) (Config, error) {
	if path == "" {
		for _, p := range configPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	cfg := DefaultConfig()
	if path != "" {
		if err := decodeFile(expandHome(path), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Path = expandHome(path)
	}

	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, cfg)
	}
	_, err := toml.DecodeFile(path, cfg)
	return err
}

// resolve fills secrets from the environment and expands ~ in paths.
func (c *Config) resolve() {
	c.DataDir = expandHome(c.DataDir)
	c.LLM.APIKey = fromEnv(c.LLM.APIKey, c.LLM.APIKeyEnv)
	if c.TopicModel != nil {
		c.TopicModel.APIKey = fromEnv(c.TopicModel.APIKey, c.TopicModel.APIKeyEnv)
	}
	c.GitHub.Token = fromEnv(c.GitHub.Token, c.GitHub.TokenEnv)
	if len(c.Feeds) == 0 {
		c.Feeds = append([]topics.Feed(nil), topics.DefaultFeeds...)
	}
}

func fromEnv(value, env string) string {
	if value != "" || env == "" {
		return value
	}
	return os.Getenv(env)
}

var providers = map[string]bool{"openai": true, "deepseek": true, "ollama": true, "mock": true}

// Validate checks the provider settings that cannot be fixed by defaults.
func (c Config) Validate() error {
	var errs []error
	check := func(name string, l LLMConfig) {
		if l.Provider == "" {
			return
		}
		if !providers[l.Provider] {
			errs = append(errs, fmt.Errorf("%s: provider %s not supported", name, l.Provider))
		}
		if l.Provider == "deepseek" && l.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s: provider deepseek requires base_url (OpenAI-compatible endpoint)", name))
		}
	}
	check("llm", c.LLM)
	if c.TopicModel != nil {
		check("topic_model", *c.TopicModel)
	}
	if c.GitHub.Repo != "" && strings.Count(c.GitHub.Repo, "/") != 1 {
		errs = append(errs, fmt.Errorf("github: repo must be owner/name, got %q", c.GitHub.Repo))
	}
	return errors.Join(errs...)
}

func configPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths,
			filepath.Join(xdg, "article-canvas", "config.toml"),
			filepath.Join(xdg, "article-canvas", "config.json"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		paths = append(paths,
			filepath.Join(home, ".config", "article-canvas", "config.toml"),
			filepath.Join(home, ".config", "article-canvas", "config.json"))
	}
	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
