// Package settings owns the mutable, DB-backed settings: the keyword list,
// per-channel configs and the schedule. Stored values override the YAML
// defaults.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"techflow-engine/internal/config"
	"techflow-engine/internal/domain"
	"techflow-engine/internal/secrets"
)

const (
	KeyKeywords = "keywords"
	KeyTinyURL  = "tinyurl"
	KeyBlogger  = "blogger"
	KeyTelegram = "telegram"
	KeyWhatsApp = "whatsapp"

	keySchedule = "schedule"
)

// channelKeys maps API setting keys to channel names.
var channelKeys = map[string]string{
	KeyTinyURL:  domain.ChannelShortener,
	KeyBlogger:  domain.ChannelBlog,
	KeyTelegram: domain.ChannelTelegram,
	KeyWhatsApp: domain.ChannelWhatsApp,
}

const redactedToken = "********"

type Store interface {
	GetSetting(ctx context.Context, key string) ([]byte, bool, error)
	PutSetting(ctx context.Context, key string, value []byte) error
}

// SecretFunc looks up a credential field for a channel.
type SecretFunc func(channel, field string) (string, error)

type Service struct {
	store    Store
	defaults config.Config
	secret   SecretFunc

	// writes are serialized so a read-modify-write never interleaves
	mu sync.Mutex
}

func New(store Store, defaults config.Config) *Service {
	return &Service{store: store, defaults: defaults, secret: secrets.Get}
}

// WithSecrets swaps the credential lookup, mainly for tests.
func (s *Service) WithSecrets(fn SecretFunc) *Service {
	s.secret = fn
	return s
}

func (s *Service) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.store.GetSetting(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

func (s *Service) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.store.PutSetting(ctx, key, raw); err != nil {
		return &domain.PersistenceError{Op: "save setting " + key, Err: err}
	}
	return nil
}

// Keywords returns the stored keyword list, or the configured one when
// none was saved.
func (s *Service) Keywords(ctx context.Context) ([]string, error) {
	var kws []string
	ok, err := s.load(ctx, KeyKeywords, &kws)
	if err != nil {
		return nil, err
	}
	if !ok || len(kws) == 0 {
		return append([]string(nil), s.defaults.Scrape.Keywords...), nil
	}
	return kws, nil
}

func (s *Service) SetKeywords(ctx context.Context, kws []string) error {
	clean := config.TrimList(kws)
	if len(clean) == 0 {
		return &domain.ValidationError{Field: KeyKeywords, Message: "at least one keyword is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, KeyKeywords, clean)
}

func (s *Service) channelDefaults(channel string) config.ChannelDefaults {
	switch channel {
	case domain.ChannelShortener:
		return s.defaults.Channels.Shortener
	case domain.ChannelBlog:
		return s.defaults.Channels.Blog
	case domain.ChannelTelegram:
		return s.defaults.Channels.Telegram
	case domain.ChannelWhatsApp:
		return s.defaults.Channels.WhatsApp
	}
	return config.ChannelDefaults{}
}

// Channel resolves the effective config of a channel. The token comes from
// the keyring first, then the stored settings, then env/config.
func (s *Service) Channel(ctx context.Context, channel string) (domain.ChannelConfig, error) {
	def := s.channelDefaults(channel)
	out := domain.ChannelConfig{
		Enabled:  def.Enabled,
		Endpoint: def.Endpoint,
		Target:   def.Target,
		Extra:    map[string]string{},
	}
	for k, v := range def.Extra {
		out.Extra[k] = v
	}

	var stored domain.ChannelConfig
	ok, err := s.load(ctx, channel, &stored)
	if err != nil {
		return domain.ChannelConfig{}, err
	}
	if ok {
		out.Enabled = stored.Enabled
		if stored.Endpoint != "" {
			out.Endpoint = stored.Endpoint
		}
		if stored.Target != "" {
			out.Target = stored.Target
		}
		for k, v := range stored.Extra {
			if v != "" {
				out.Extra[k] = v
			}
		}
	}

	switch tok, err := s.secret(channel, "token"); {
	case err == nil && tok != "":
		out.Token = tok
	case ok && stored.Token != "":
		out.Token = stored.Token
	default:
		out.Token = def.Token
	}
	return out, nil
}

// SetChannel stores cfg for channel. A redacted or empty token keeps the
// previously stored one.
func (s *Service) SetChannel(ctx context.Context, channel string, cfg domain.ChannelConfig) error {
	if !knownChannel(channel) {
		return &domain.ValidationError{Field: "key", Message: fmt.Sprintf("unknown channel %q", channel)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.Token == "" || cfg.Token == redactedToken {
		var prev domain.ChannelConfig
		if _, err := s.load(ctx, channel, &prev); err != nil {
			return err
		}
		cfg.Token = prev.Token
	}
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Target = strings.TrimSpace(cfg.Target)
	return s.save(ctx, channel, cfg)
}

func knownChannel(ch string) bool {
	for _, v := range channelKeys {
		if v == ch {
			return true
		}
	}
	return false
}

// View is the GET /settings payload. Tokens are redacted.
type View struct {
	Keywords []string             `json:"keywords"`
	TinyURL  domain.ChannelConfig `json:"tinyurl"`
	Blogger  domain.ChannelConfig `json:"blogger"`
	Telegram domain.ChannelConfig `json:"telegram"`
	WhatsApp domain.ChannelConfig `json:"whatsapp"`
}

func (s *Service) View(ctx context.Context) (View, error) {
	var v View
	var err error
	if v.Keywords, err = s.Keywords(ctx); err != nil {
		return View{}, err
	}
	for key, dst := range map[string]*domain.ChannelConfig{
		KeyTinyURL:  &v.TinyURL,
		KeyBlogger:  &v.Blogger,
		KeyTelegram: &v.Telegram,
		KeyWhatsApp: &v.WhatsApp,
	} {
		c, err := s.Channel(ctx, channelKeys[key])
		if err != nil {
			return View{}, err
		}
		*dst = c.Redacted()
	}
	return v, nil
}

// Update applies one POST /settings {key, value} change.
func (s *Service) Update(ctx context.Context, key string, value json.RawMessage) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == KeyKeywords {
		var kws []string
		if err := json.Unmarshal(value, &kws); err != nil {
			return &domain.ValidationError{Field: "value", Message: "keywords must be a list of strings"}
		}
		return s.SetKeywords(ctx, kws)
	}
	channel, ok := channelKeys[key]
	if !ok {
		return &domain.ValidationError{Field: "key", Message: fmt.Sprintf("unknown settings key %q", key)}
	}
	var cfg domain.ChannelConfig
	if err := json.Unmarshal(value, &cfg); err != nil {
		return &domain.ValidationError{Field: "value", Message: "expected a channel config object"}
	}
	return s.SetChannel(ctx, channel, cfg)
}

// Schedule returns the stored schedule or the default one. LastRun and
// NextRun are left for the caller to derive.
func (s *Service) Schedule(ctx context.Context) (domain.ScheduleConfig, error) {
	sc := domain.DefaultSchedule()
	if _, err := s.load(ctx, keySchedule, &sc); err != nil {
		return domain.ScheduleConfig{}, err
	}
	sc.LastRun, sc.NextRun = nil, nil
	return sc, nil
}

func (s *Service) SaveSchedule(ctx context.Context, sc domain.ScheduleConfig, known []string) error {
	if err := sc.Validate(known); err != nil {
		return err
	}
	sc.LastRun, sc.NextRun = nil, nil
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, keySchedule, sc)
}
