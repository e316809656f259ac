package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/darklens/internal/acquire"
	"github.com/ppiankov/darklens/internal/cache"
	"github.com/ppiankov/darklens/internal/llm"
	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/model"
	"github.com/ppiankov/darklens/internal/util"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// optionalKeys are omitted from the marshaled defaults but may still come from the environment
var optionalKeys = []string{
	"llm.api_key",
	"llm.base_url",
	"http.http_proxy",
	"http.https_proxy",
	"http.no_proxy",
	"output.json_path",
	"output.md_path",
	"output.yaml_path",
}

// loadConfig merges defaults, the config file and DARKLENS_* variables.
// Command flags are applied on top by each command.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := registerDefaults(cfg); err != nil {
		return nil, err
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// registerDefaults makes every config key known to viper so AutomaticEnv can override it
func registerDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("flattening defaults: %w", err)
	}
	for key, value := range flatten("", tree) {
		viper.SetDefault(key, value)
	}
	for _, key := range optionalKeys {
		if err := viper.BindEnv(key); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// buildCache returns the capture cache, or nil when caching is off
func buildCache(cfg *model.Config) cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	dir := cfg.Cache.DiskDir
	if dir == "" {
		base, err := configDir()
		if err != nil {
			return cache.NewMemoryCache(cfg.Cache.MemoryTTL, cfg.Cache.MemoryTTL)
		}
		dir = filepath.Join(base, "cache")
	}
	return cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
}

// buildAcquirer wires the capture backend, cache and robots preflight
func buildAcquirer(cfg *model.Config, logger logging.Logger) (*acquire.Acquirer, error) {
	client := &http.Client{
		Transport: util.NewTransport(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
	}

	capturer, err := acquire.NewCapturer(cfg.Capture, client)
	if err != nil {
		return nil, err
	}

	deps := acquire.Deps{
		Cache:  buildCache(cfg),
		Logger: logger.With(logging.F("component", "acquire")),
	}
	if cfg.Capture.RespectRobots {
		deps.Robots = util.NewRobotsChecker(cfg.Capture.UserAgent, client)
	}
	return acquire.NewAcquirer(cfg, capturer, deps), nil
}

// buildAnalyzer resolves the API key and creates the oracle client.
// A missing key is reported when a scan first needs it.
func buildAnalyzer(cfg *model.Config, logger logging.Logger) (*llm.Analyzer, error) {
	llmCfg := llmConfig(cfg)
	return llm.NewAnalyzer(llmCfg, logger.With(logging.F("component", "llm")))
}

func llmConfig(cfg *model.Config) llm.Config {
	llmCfg := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
	if llmCfg.APIKey == "" {
		llmCfg.APIKey = llm.APIKeyFromEnv(llmCfg.Provider)
	}
	if llmCfg.BaseURL == "" && strings.EqualFold(llmCfg.Provider, "ollama") {
		llmCfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return llmCfg
}
