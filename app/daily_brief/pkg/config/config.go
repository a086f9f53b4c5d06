package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 归档模式
const (
	ModeAccumulate = "accumulate"
	ModeReset      = "reset"
)

// 失败处理策略
const (
	PolicyFallback = "fallback"
	PolicyFailFast = "fail_fast"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
}

// LLMConfig 生成器相关配置
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // gemini | openai | openai_compatible | anthropic | static
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	EnableSearch   bool    `yaml:"enable_search"`
	ResponseFormat string  `yaml:"response_format"` // json | free-text
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	// StaticFile provider=static 时读取的固定输出
	StaticFile string `yaml:"static_file"`
}

// Timeout 单次生成的超时
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveAPIKey 优先使用 api_key，其次读取 api_key_env 指定的环境变量
func (c LLMConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv)
	}
	return ""
}

// SearchConfig 检索增强配置，给没有原生搜索工具的生成器使用
type SearchConfig struct {
	Provider      string        `yaml:"provider"` // tavily | searxng | 空=不使用
	Query         string        `yaml:"query"`
	MaxResults    int           `yaml:"max_results"`
	FetchFullText bool          `yaml:"fetch_full_text"`
	Tavily        TavilyConfig  `yaml:"tavily"`
	SearXNG       SearXNGConfig `yaml:"searxng"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL  string `yaml:"base_url"`
	Timeout  int    `yaml:"timeout"`
	Language string `yaml:"language"`
}

// ArchiveConfig 归档文件配置
type ArchiveConfig struct {
	Path string `yaml:"path"`
	Cap  int    `yaml:"cap"`
	Mode string `yaml:"mode"`
	// Lock 为 true 时对 <path>.lock 加排他锁
	Lock bool `yaml:"lock"`
}

// PipelineConfig 流水线行为
type PipelineConfig struct {
	Policy           string        `yaml:"policy"`
	UTCOffsetHours   int           `yaml:"utc_offset_hours"`
	ErrorTitle       LocalizedText `yaml:"error_title"`
	WithDescriptions bool          `yaml:"with_descriptions"`
	PromptFile       string        `yaml:"prompt_file"`
}

// LocalizedText 配置里的双语文本
type LocalizedText struct {
	JA string `yaml:"ja"`
	EN string `yaml:"en"`
}

// Location 固定偏移时区，默认 UTC+9
func (c PipelineConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.UTCOffsetHours), c.UTCOffsetHours*3600)
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 生成器限流配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// DBConfig 镜像数据库配置，Driver 为空时不启用
type DBConfig struct {
	Driver   string `yaml:"driver"` // postgres | sqlite
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Enabled 是否配置了镜像数据库
func (c DBConfig) Enabled() bool {
	return c.Driver != ""
}

// Default 返回带默认值的配置
func Default() *Config {
	// 零值本身合法的字段在这里给默认值，yaml 显式写 0 时保留 0
	cfg := &Config{
		LLM:      LLMConfig{Temperature: 0.1, MaxRetries: 3},
		Pipeline: PipelineConfig{UTCOffsetHours: 9},
	}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfig 从指定路径加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// 先铺默认值，yaml 只覆盖出现的字段
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults 补全未设置的字段
func (c *Config) ApplyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.ResponseFormat == "" {
		c.LLM.ResponseFormat = "json"
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 300
	}
	if c.LLM.MaxRetries < 0 {
		c.LLM.MaxRetries = 0
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 8
	}
	if c.Archive.Path == "" {
		c.Archive.Path = "docs/data.json"
	}
	if c.Archive.Cap <= 0 {
		c.Archive.Cap = 50
	}
	if c.Archive.Mode == "" {
		c.Archive.Mode = ModeAccumulate
	}
	if c.Pipeline.Policy == "" {
		c.Pipeline.Policy = PolicyFallback
	}
	if c.Pipeline.ErrorTitle.JA == "" {
		c.Pipeline.ErrorTitle.JA = "分析エラー"
	}
	if c.Pipeline.ErrorTitle.EN == "" {
		c.Pipeline.ErrorTitle.EN = "Error"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 10
	}
}

// Validate 检查枚举字段
func (c *Config) Validate() error {
	switch c.Archive.Mode {
	case ModeAccumulate, ModeReset:
	default:
		return fmt.Errorf("配置错误: archive.mode 只能是 %s 或 %s，当前为 %q", ModeAccumulate, ModeReset, c.Archive.Mode)
	}
	switch c.Pipeline.Policy {
	case PolicyFallback, PolicyFailFast:
	default:
		return fmt.Errorf("配置错误: pipeline.policy 只能是 %s 或 %s，当前为 %q", PolicyFallback, PolicyFailFast, c.Pipeline.Policy)
	}
	switch c.LLM.ResponseFormat {
	case "json", "free-text":
	default:
		return fmt.Errorf("配置错误: llm.response_format 只能是 json 或 free-text，当前为 %q", c.LLM.ResponseFormat)
	}
	if c.Pipeline.UTCOffsetHours < -12 || c.Pipeline.UTCOffsetHours > 14 {
		return fmt.Errorf("配置错误: pipeline.utc_offset_hours 超出范围: %d", c.Pipeline.UTCOffsetHours)
	}
	return nil
}
