package model

import "time"

// Config is the complete darklens configuration
type Config struct {
	Capture CaptureConfig `yaml:"capture" mapstructure:"capture"`
	Upload  UploadConfig  `yaml:"upload" mapstructure:"upload"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
}

// CaptureConfig controls live-URL screenshot capture
type CaptureConfig struct {
	Backend           string        `yaml:"backend" mapstructure:"backend"`   // thumio, chromedp
	Endpoint          string        `yaml:"endpoint" mapstructure:"endpoint"` // Base URL of the capture service
	Width             int           `yaml:"width" mapstructure:"width"`
	CropHeight        int           `yaml:"crop_height" mapstructure:"crop_height"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MinBytes          int           `yaml:"min_bytes" mapstructure:"min_bytes"` // Smaller payloads count as an empty capture
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// UploadConfig bounds file uploads
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// LLMConfig configures the analysis oracle
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CacheConfig controls the capture cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// HTTPConfig holds outbound proxy settings shared by capture and oracle clients
type HTTPConfig struct {
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ServerConfig configures `darklens serve`
type ServerConfig struct {
	Addr               string `yaml:"addr" mapstructure:"addr"`
	MaxConcurrentScans int    `yaml:"max_concurrent_scans" mapstructure:"max_concurrent_scans"`
	QueueDepth         int    `yaml:"queue_depth" mapstructure:"queue_depth"` // Scans waiting for a slot before 503
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose  bool   `yaml:"verbose" mapstructure:"verbose"`
	JSONPath string `yaml:"json_path,omitempty" mapstructure:"json_path"`
	MDPath   string `yaml:"md_path,omitempty" mapstructure:"md_path"`
	YAMLPath string `yaml:"yaml_path,omitempty" mapstructure:"yaml_path"`
}

// Upload and capture limits
const (
	DefaultMaxUploadBytes  = 5 * 1024 * 1024
	DefaultCaptureWidth    = 1200
	DefaultCaptureHeight   = 900
	DefaultCaptureTimeout  = 20 * time.Second
	DefaultMinCaptureBytes = 500
	DefaultTemperature     = 0.2
)

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			Backend:           "thumio",
			Endpoint:          "https://image.thum.io",
			Width:             DefaultCaptureWidth,
			CropHeight:        DefaultCaptureHeight,
			Timeout:           DefaultCaptureTimeout,
			MinBytes:          DefaultMinCaptureBytes,
			UserAgent:         "darklens/0.1 (+https://github.com/ppiankov/darklens)",
			RequestsPerSecond: 1,
			Burst:             3,
			RespectRobots:     false,
		},
		Upload: UploadConfig{
			MaxBytes: DefaultMaxUploadBytes,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     60,
			Temperature: DefaultTemperature,
			MaxTokens:   4096,
		},
		Cache: CacheConfig{
			Enabled:   false, // Opt-in: a hit replays a capture up to DiskTTL old
			MemoryTTL: 10 * time.Minute,
			DiskDir:   "", // Resolved to ~/.darklens/cache at runtime
			DiskTTL:   1 * time.Hour,
		},
		Server: ServerConfig{
			Addr:               "127.0.0.1:8080",
			MaxConcurrentScans: 4,
			QueueDepth:         16,
		},
	}
}
