package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"techflow-engine/internal/logger"
)

//go:embed default.yml
var defaultYAML []byte

type ChannelDefaults struct {
	Enabled  bool              `yaml:"enabled"`
	Endpoint string            `yaml:"endpoint"`
	Target   string            `yaml:"target"`
	Token    string            `yaml:"token"`
	Extra    map[string]string `yaml:"extra,omitempty"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
		APIKey  string `yaml:"api_key"`

		// CORSOrigins lists dashboard origins; empty admits any.
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"app"`

	Logging logger.Config `yaml:"logging"`

	Scrape struct {
		Keywords                 []string            `yaml:"keywords"`
		Synonyms                 map[string][]string `yaml:"synonyms"`
		RegionTerms              []string            `yaml:"region_terms"`
		RequireRequirements      bool                `yaml:"require_requirements"`
		OnePerKeyword            bool                `yaml:"one_per_keyword"`
		PerListingTimeoutSeconds int                 `yaml:"per_listing_timeout_seconds"`
		SecondaryRetries         int                 `yaml:"secondary_retries"`
		ProgressEvery            int                 `yaml:"progress_every"`
		PerSourceTimeoutSeconds  int                 `yaml:"per_source_timeout_seconds"`
		RequestsPerSecond        float64             `yaml:"requests_per_second"`
		UserAgent                string              `yaml:"user_agent"`
	} `yaml:"scrape"`

	Sources struct {
		Wuzzuf struct {
			Enabled bool   `yaml:"enabled"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"wuzzuf"`
		Indeed struct {
			Enabled bool   `yaml:"enabled"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"indeed"`
		Email struct {
			Enabled          bool     `yaml:"enabled"`
			IMAPHost         string   `yaml:"imap_host"`
			IMAPPort         int      `yaml:"imap_port"`
			Username         string   `yaml:"username"`
			Mailbox          string   `yaml:"mailbox"`
			SearchSubjectAny []string `yaml:"search_subject_any"`
			LookbackDays     int      `yaml:"lookback_days"`
			MaxMessages      int      `yaml:"max_messages"`
			CacheSeconds     int      `yaml:"cache_seconds"`
		} `yaml:"email"`
	} `yaml:"sources"`

	Channels struct {
		Shortener          ChannelDefaults `yaml:"shortener"`
		Blog               ChannelDefaults `yaml:"blog"`
		Telegram           ChannelDefaults `yaml:"telegram"`
		WhatsApp           ChannelDefaults `yaml:"whatsapp"`
		CallTimeoutSeconds int             `yaml:"call_timeout_seconds"`
		Concurrency        int             `yaml:"concurrency"`
		Footer             struct {
			WhatsAppChannel string `yaml:"whatsapp_channel"`
			TelegramChannel string `yaml:"telegram_channel"`
		} `yaml:"footer"`
	} `yaml:"channels"`

	Scheduler struct {
		PollSeconds int `yaml:"poll_seconds"`
	} `yaml:"scheduler"`

	Redis struct {
		URL      string `yaml:"url"`
		TTLHours int    `yaml:"ttl_hours"`
	} `yaml:"redis"`
}

// Default returns the embedded configuration.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Sprintf("embedded default.yml: %v", err))
	}
	return cfg
}

// Load reads path on top of the embedded defaults, so a partial user file
// still yields a usable config.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// EnabledSources lists the configured sources in visiting order.
func (c Config) EnabledSources() []string {
	var out []string
	if c.Sources.Wuzzuf.Enabled {
		out = append(out, "wuzzuf")
	}
	if c.Sources.Indeed.Enabled {
		out = append(out, "indeed")
	}
	if c.Sources.Email.Enabled {
		out = append(out, "email")
	}
	return out
}
