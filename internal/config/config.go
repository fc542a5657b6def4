package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"outreach_engine/internal/model"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Browser   BrowserConfig   `yaml:"browser"`
	Limits    LimitsConfig    `yaml:"limits"`
	Campaign  CampaignConfig  `yaml:"campaign"`
	Content   ContentConfig   `yaml:"content"`
	Messaging MessagingConfig `yaml:"messaging"`
	Notify    NotifyConfig    `yaml:"notify"`
}

type ServerConfig struct {
	Addr string     `yaml:"addr"`
	Cors CorsConfig `yaml:"cors"`
}

type CorsConfig struct {
	AllowOrigins     []string `yaml:"allowOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

type StorageConfig struct {
	SQLitePath string `yaml:"sqlitePath"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
	File   string `yaml:"file"`
	// BufferSize is the number of log lines kept in memory for the dashboard.
	BufferSize int `yaml:"bufferSize"`
}

type BrowserConfig struct {
	Headless bool   `yaml:"headless"`
	BinPath  string `yaml:"binPath"`
	// ControlURL attaches to an already running browser instead of launching one.
	ControlURL          string `yaml:"controlURL"`
	UserAgent           string `yaml:"userAgent"`
	WindowWidth         int    `yaml:"windowWidth"`
	WindowHeight        int    `yaml:"windowHeight"`
	NavigationTimeoutMs int    `yaml:"navigationTimeoutMs"`
	LoginSettleMs       int    `yaml:"loginSettleMs"`

	LoginURL     string `yaml:"loginURL"`
	FeedURL      string `yaml:"feedURL"`
	SearchURL    string `yaml:"searchURL"`
	MessagingURL string `yaml:"messagingURL"`
}

func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

func (c BrowserConfig) LoginSettle() time.Duration {
	if c.LoginSettleMs <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.LoginSettleMs) * time.Millisecond
}

type LimitsConfig struct {
	// MaxConcurrentCampaigns caps how many browser sessions run at the same time.
	MaxConcurrentCampaigns int `yaml:"maxConcurrentCampaigns"`
	// ActionsPerMinute is a process-wide cap on outreach clicks across all campaigns.
	ActionsPerMinute float64 `yaml:"actionsPerMinute"`
	ActionsBurst     int     `yaml:"actionsBurst"`
}

type CampaignConfig struct {
	TotalBudget        int  `yaml:"totalBudget"`
	MaxPagesPerKeyword int  `yaml:"maxPagesPerKeyword"`
	Rebalance          bool `yaml:"rebalance"`
	// AcceptFollow lets the executor fall back to follow buttons when no connect button is present.
	AcceptFollow *bool `yaml:"acceptFollow"`

	SettleMs       int `yaml:"settleMs"`
	PaceMinMs      int `yaml:"paceMinMs"`
	PaceMaxMs      int `yaml:"paceMaxMs"`
	CooldownMinMs  int `yaml:"cooldownMinMs"`
	CooldownMaxMs  int `yaml:"cooldownMaxMs"`
	PageTurnMs     int `yaml:"pageTurnMs"`
	ReadyTimeoutMs int `yaml:"readyTimeoutMs"`

	Categories []model.CategorySpec `yaml:"categories"`
}

func (c CampaignConfig) FollowAccepted() bool {
	if c.AcceptFollow == nil {
		return true
	}
	return *c.AcceptFollow
}

func (c CampaignConfig) Settle() time.Duration {
	return msOr(c.SettleMs, 2*time.Second)
}

func (c CampaignConfig) PaceMin() time.Duration {
	return msOr(c.PaceMinMs, 4*time.Second)
}

func (c CampaignConfig) PaceMax() time.Duration {
	return msOr(c.PaceMaxMs, 12*time.Second)
}

func (c CampaignConfig) CooldownMin() time.Duration {
	return msOr(c.CooldownMinMs, 10*time.Second)
}

func (c CampaignConfig) CooldownMax() time.Duration {
	return msOr(c.CooldownMaxMs, 20*time.Second)
}

func (c CampaignConfig) PageTurn() time.Duration {
	return msOr(c.PageTurnMs, 4*time.Second)
}

func (c CampaignConfig) ReadyTimeout() time.Duration {
	return msOr(c.ReadyTimeoutMs, 20*time.Second)
}

type ContentConfig struct {
	// Provider is one of template, openai, gemini.
	Provider string       `yaml:"provider"`
	Industry string       `yaml:"industry"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Gemini   GeminiConfig `yaml:"gemini"`
}

type OpenAIConfig struct {
	BaseURL     string  `yaml:"baseURL"`
	APIKey      string  `yaml:"apiKey"`
	Model       string  `yaml:"model"`
	TimeoutMs   int     `yaml:"timeoutMs"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
}

func (c OpenAIConfig) Timeout() time.Duration {
	return msOr(c.TimeoutMs, 30*time.Second)
}

type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type MessagingConfig struct {
	MaxConversations int `yaml:"maxConversations"`
	PollIntervalMs   int `yaml:"pollIntervalMs"`
	// MaxCycles bounds the polling loop; 0 runs until the task is cancelled.
	MaxCycles int `yaml:"maxCycles"`
}

func (c MessagingConfig) PollInterval() time.Duration {
	return msOr(c.PollIntervalMs, 15*time.Second)
}

// NotifyConfig tunes the completion e-mail. Sender credentials live in the settings table.
type NotifyConfig struct {
	// SMTPHost overrides the server derived from the sender's domain.
	SMTPHost string `yaml:"smtpHost"`
	SMTPPort int    `yaml:"smtpPort"`
	SSL      *bool  `yaml:"ssl"`
	// SummaryWindowMs batches events finishing close together into one mail; 0 sends immediately.
	SummaryWindowMs *int `yaml:"summaryWindowMs"`
	MaxBatch        int  `yaml:"maxBatch"`
}

func (c NotifyConfig) SummaryWindow() time.Duration {
	if c.SummaryWindowMs == nil {
		return 20 * time.Second
	}
	if *c.SummaryWindowMs <= 0 {
		return 0
	}
	return time.Duration(*c.SummaryWindowMs) * time.Millisecond
}

// UseSSL reports implicit TLS; without an explicit setting only port 465 uses it.
func (c NotifyConfig) UseSSL(port int) bool {
	if c.SSL != nil {
		return *c.SSL
	}
	return port == 465
}

func msOr(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default. found reports whether the file existed.
func LoadOrDefault(path string) (cfg Config, found bool, err error) {
	cfg, err = Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	return cfg, err == nil, err
}

// Default returns a configuration with every default applied, for callers without a yaml file.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "./data/outreach_engine.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.BufferSize <= 0 {
		c.Log.BufferSize = 500
	}
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = 1366
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = 900
	}
	if c.Browser.LoginURL == "" {
		c.Browser.LoginURL = "https://www.linkedin.com/login"
	}
	if c.Browser.FeedURL == "" {
		c.Browser.FeedURL = "https://www.linkedin.com/feed/"
	}
	if c.Browser.SearchURL == "" {
		c.Browser.SearchURL = "https://www.linkedin.com/search/results/people/?origin=SWITCH_SEARCH_VERTICAL&network=%5B%22S%22,%22O%22%5D"
	}
	if c.Browser.MessagingURL == "" {
		c.Browser.MessagingURL = "https://www.linkedin.com/messaging/"
	}
	if c.Limits.MaxConcurrentCampaigns <= 0 {
		c.Limits.MaxConcurrentCampaigns = 2
	}
	if c.Limits.ActionsPerMinute <= 0 {
		c.Limits.ActionsPerMinute = 6
	}
	if c.Limits.ActionsBurst <= 0 {
		c.Limits.ActionsBurst = 1
	}
	if c.Campaign.TotalBudget <= 0 {
		c.Campaign.TotalBudget = 20
	}
	if c.Campaign.MaxPagesPerKeyword <= 0 {
		c.Campaign.MaxPagesPerKeyword = 2
	}
	if len(c.Campaign.Categories) == 0 {
		c.Campaign.Categories = DefaultCategories()
	}
	if c.Content.Provider == "" {
		c.Content.Provider = "template"
	}
	if c.Content.Industry == "" {
		c.Content.Industry = "tech"
	}
	if c.Content.OpenAI.BaseURL == "" {
		c.Content.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.Content.OpenAI.APIKey == "" {
		c.Content.OpenAI.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if c.Content.OpenAI.Model == "" {
		c.Content.OpenAI.Model = "gpt-3.5-turbo"
	}
	if c.Content.OpenAI.MaxTokens <= 0 {
		c.Content.OpenAI.MaxTokens = 250
	}
	if c.Content.OpenAI.Temperature <= 0 {
		c.Content.OpenAI.Temperature = 0.8
	}
	if c.Content.Gemini.APIKey == "" {
		c.Content.Gemini.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if c.Content.Gemini.Model == "" {
		c.Content.Gemini.Model = "gemini-1.5-flash"
	}
	if c.Messaging.MaxConversations <= 0 {
		c.Messaging.MaxConversations = 5
	}
	if c.Notify.MaxBatch <= 0 {
		c.Notify.MaxBatch = 50
	}
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	switch c.Content.Provider {
	case "template", "openai", "gemini":
	default:
		return fmt.Errorf("content.provider %q is not supported", c.Content.Provider)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q is not supported", c.Log.Format)
	}
	if c.Notify.SMTPPort < 0 || c.Notify.SMTPPort > 65535 {
		return fmt.Errorf("notify.smtpPort %d is out of range", c.Notify.SMTPPort)
	}
	if c.Campaign.PaceMax() < c.Campaign.PaceMin() {
		return errors.New("campaign.paceMaxMs must be >= campaign.paceMinMs")
	}
	if c.Campaign.CooldownMax() < c.Campaign.CooldownMin() {
		return errors.New("campaign.cooldownMaxMs must be >= campaign.cooldownMinMs")
	}
	seen := make(map[string]struct{}, len(c.Campaign.Categories))
	for i, cat := range c.Campaign.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return fmt.Errorf("campaign.categories[%d].name is required", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("campaign.categories: duplicate name %q", name)
		}
		seen[name] = struct{}{}
		if len(cat.Keywords) == 0 {
			return fmt.Errorf("campaign.categories[%d] (%s) has no keywords", i, name)
		}
	}
	return nil
}
