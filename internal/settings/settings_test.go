package settings

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techflow-engine/internal/config"
	"techflow-engine/internal/domain"
	"techflow-engine/internal/secrets"
	"techflow-engine/internal/store"
)

func newService(t *testing.T, keyring map[string]string) *Service {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Default()
	cfg.Channels.Telegram.Token = "env-token"
	return New(db, cfg).WithSecrets(func(channel, field string) (string, error) {
		if v, ok := keyring[channel+":"+field]; ok {
			return v, nil
		}
		return "", secrets.ErrNotFound
	})
}

func TestKeywords_DefaultThenStored(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	kws, err := s.Keywords(ctx)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Scrape.Keywords, kws)

	require.NoError(t, s.Update(ctx, "keywords", json.RawMessage(`[" go ","Flutter","go",""]`)))
	kws, err = s.Keywords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "Flutter"}, kws)

	err = s.Update(ctx, "keywords", json.RawMessage(`[]`))
	assert.True(t, domain.IsValidation(err))
}

func TestChannel_TokenResolutionOrder(t *testing.T) {
	ctx := context.Background()

	s := newService(t, nil)
	c, err := s.Channel(ctx, domain.ChannelTelegram)
	require.NoError(t, err)
	assert.Equal(t, "env-token", c.Token)
	assert.Equal(t, "https://api.telegram.org", c.Endpoint)

	require.NoError(t, s.Update(ctx, "telegram", json.RawMessage(`{"enabled":true,"target":"@jobs","token":"stored-token"}`)))
	c, err = s.Channel(ctx, domain.ChannelTelegram)
	require.NoError(t, err)
	assert.Equal(t, "stored-token", c.Token)
	assert.Equal(t, "@jobs", c.Target)
	assert.True(t, c.Enabled)
	assert.Equal(t, "https://api.telegram.org", c.Endpoint)

	s.WithSecrets(func(string, string) (string, error) { return "keyring-token", nil })
	c, err = s.Channel(ctx, domain.ChannelTelegram)
	require.NoError(t, err)
	assert.Equal(t, "keyring-token", c.Token)
}

func TestSetChannel_RedactedTokenKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	s := newService(t, nil)

	require.NoError(t, s.Update(ctx, "whatsapp", json.RawMessage(`{"enabled":true,"target":"2010","token":"wa-secret","extra":{"phone_number_id":"555"}}`)))

	v, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, "********", v.WhatsApp.Token)
	assert.Equal(t, "555", v.WhatsApp.Get("phone_number_id"))

	raw, err := json.Marshal(v.WhatsApp)
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, "whatsapp", raw))

	c, err := s.Channel(ctx, domain.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, "wa-secret", c.Token)
}

func TestUpdate_RejectsUnknownKey(t *testing.T) {
	s := newService(t, nil)
	err := s.Update(context.Background(), "smtp", json.RawMessage(`{}`))
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "key", ve.Field)
}

func TestSchedule_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newService(t, nil)

	sc, err := s.Schedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSchedule(), sc)

	sc.Enabled = true
	sc.Time = "08:30"
	sc.Frequency = domain.FrequencyWeekly
	require.NoError(t, s.SaveSchedule(ctx, sc, []string{"wuzzuf", "indeed"}))

	got, err := s.Schedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, sc, got)

	sc.Time = "25:99"
	assert.True(t, domain.IsValidation(s.SaveSchedule(ctx, sc, []string{"wuzzuf", "indeed"})))
}
