package model

import "time"

// Config is the full runtime configuration, assembled by the CLI from
// flags, VCB_* environment variables, and ~/.vcb/config.yaml.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http" json:"http"`
	Fetch   FetchConfig   `yaml:"fetch" json:"fetch"`
	Session SessionConfig `yaml:"session" json:"session"`
	Extract ExtractConfig `yaml:"extract" json:"extract"`
	LLM     LLMConfig     `yaml:"llm" json:"llm"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Output  OutputConfig  `yaml:"output" json:"output"`
}

type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
}

type FetchConfig struct {
	Quality           string        `yaml:"quality" json:"quality"`
	AdapterTimeout    time.Duration `yaml:"adapter_timeout" json:"adapter_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
	RespectRobots     bool          `yaml:"respect_robots" json:"respect_robots"`
}

type SessionConfig struct {
	Browser string `yaml:"browser" json:"browser"` // safari | chromium
	Mode    string `yaml:"mode" json:"mode"`       // qr-login
	File    string `yaml:"file" json:"file"`       // pre-existing session handle path
}

type ExtractConfig struct {
	MaxFrames    int           `yaml:"max_frames" json:"max_frames"`
	MaxOCRImages int           `yaml:"max_ocr_images" json:"max_ocr_images"`
	OCRWorkers   int           `yaml:"ocr_workers" json:"ocr_workers"`
	ToolTimeout  time.Duration `yaml:"tool_timeout" json:"tool_timeout"`
}

type LLMConfig struct {
	Model     string        `yaml:"model" json:"model"`
	APIKey    string        `yaml:"-" json:"-"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens int           `yaml:"max_tokens" json:"max_tokens"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
}

type OutputConfig struct {
	Dir            string `yaml:"dir" json:"dir"`
	SaveArtifacts  string `yaml:"save_artifacts" json:"save_artifacts"` // ask | always | never
	NonInteractive bool   `yaml:"non_interactive" json:"non_interactive"`
	Verbose        bool   `yaml:"verbose" json:"verbose"`
	Language       string `yaml:"language" json:"language"`
}

// DefaultConfig returns the built-in defaults, lowest in the hierarchy.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			MaxBodyBytes: 2_000_000,
		},
		Fetch: FetchConfig{
			Quality:           "high",
			AdapterTimeout:    3 * time.Minute,
			RequestsPerSecond: 1,
			Burst:             3,
			RespectRobots:     true,
		},
		Session: SessionConfig{
			Browser: "safari",
			Mode:    "qr-login",
		},
		Extract: ExtractConfig{
			MaxFrames:    8,
			MaxOCRImages: 10,
			OCRWorkers:   4,
			ToolTimeout:  2 * time.Minute,
		},
		LLM: LLMConfig{
			Model:     "gpt-4.1-mini",
			Timeout:   60 * time.Second,
			MaxTokens: 4000,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     15 * time.Minute,
		},
		Output: OutputConfig{
			SaveArtifacts: "ask",
			Language:      "zh-CN",
		},
	}
}
