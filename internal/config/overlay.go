package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overlays environment variables on cfg. Unset or empty variables
// leave the file value alone.
func ApplyEnv(cfg *Config) {
	setStr := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setStr("TECHFLOW_DATA_DIR", &cfg.App.DataDir)
	setStr("TECHFLOW_API_KEY", &cfg.App.APIKey)
	if v := strings.TrimSpace(os.Getenv("TECHFLOW_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = p
		}
	}
	setStr("LOG_LEVEL", &cfg.Logging.Level)
	setStr("REDIS_URL", &cfg.Redis.URL)

	setStr("TINYURL_API_KEY", &cfg.Channels.Shortener.Token)
	setStr("BLOGGER_ACCESS_TOKEN", &cfg.Channels.Blog.Token)
	setStr("TELEGRAM_BOT_TOKEN", &cfg.Channels.Telegram.Token)
	setStr("WHATSAPP_ACCESS_TOKEN", &cfg.Channels.WhatsApp.Token)
}
