package domain

const (
	ChannelBlog      = "blog"
	ChannelTelegram  = "telegram"
	ChannelWhatsApp  = "whatsapp"
	ChannelShortener = "shortener"
)

// ChannelConfig holds endpoint identifiers and credentials for one channel.
// Token is a credential; an empty Token means "resolve from keyring or env".
type ChannelConfig struct {
	Enabled  bool              `json:"enabled" yaml:"enabled"`
	Endpoint string            `json:"endpoint,omitempty" yaml:"endpoint"`
	Target   string            `json:"target,omitempty" yaml:"target"`
	Token    string            `json:"token,omitempty" yaml:"token"`
	Extra    map[string]string `json:"extra,omitempty" yaml:"extra"`
}

// Redacted hides the credential for API responses.
func (c ChannelConfig) Redacted() ChannelConfig {
	out := c
	if out.Token != "" {
		out.Token = "********"
	}
	return out
}

func (c ChannelConfig) Get(key string) string {
	if c.Extra == nil {
		return ""
	}
	return c.Extra[key]
}
