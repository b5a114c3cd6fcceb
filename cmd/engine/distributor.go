package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"techflow-engine/internal/activity"
	"techflow-engine/internal/config"
	"techflow-engine/internal/distribute"
	"techflow-engine/internal/domain"
	"techflow-engine/internal/logger"
	"techflow-engine/internal/metrics"
	"techflow-engine/internal/publish"
	"techflow-engine/internal/settings"
	"techflow-engine/internal/shortener"
	"techflow-engine/internal/store"
)

// channelDistributor rebuilds the gateways from the current channel
// settings for every call, so credential changes apply to the next run
// without a restart.
type channelDistributor struct {
	settings *settings.Service
	store    *store.DB
	rdb      *redis.Client
	cfg      config.Config
	rec      *activity.Recorder
	log      logger.Logger
	mets     *metrics.Metrics
}

func (c *channelDistributor) Distribute(ctx context.Context, jobs []domain.Job, rc domain.RunConfig) distribute.Report {
	return c.build(ctx).Distribute(ctx, jobs, rc)
}

func (c *channelDistributor) RefreshShortLinks(ctx context.Context, limit int) (int, error) {
	return c.build(ctx).RefreshShortLinks(ctx, limit)
}

func (c *channelDistributor) build(ctx context.Context) *distribute.Distributor {
	timeout := seconds(c.cfg.Channels.CallTimeoutSeconds)
	client := &http.Client{Timeout: timeout}

	var gateways []publish.Gateway
	var short shortener.Gateway = shortener.Disabled{}

	channel := func(name string) (domain.ChannelConfig, bool) {
		cc, err := c.settings.Channel(ctx, name)
		if err != nil {
			c.log.Warn("channel settings unreadable", logger.String("channel", name), logger.Error(err))
			return domain.ChannelConfig{}, false
		}
		return cc, cc.Enabled && cc.Token != ""
	}

	if cc, ok := channel(domain.ChannelShortener); ok {
		short = shortener.NewTinyURL(cc.Endpoint, cc.Token, client, 1)
		if c.rdb != nil {
			short = shortener.NewCached(short, c.rdb, time.Duration(c.cfg.Redis.TTLHours)*time.Hour, c.log)
		}
	}
	if cc, ok := channel(domain.ChannelBlog); ok && cc.Target != "" {
		gateways = append(gateways, publish.NewBlogger(cc.Endpoint, cc.Target, cc.Token, client))
	}
	if cc, ok := channel(domain.ChannelTelegram); ok && cc.Target != "" {
		gateways = append(gateways, publish.NewTelegram(cc.Endpoint, cc.Token, cc.Target, client))
	}
	if cc, ok := channel(domain.ChannelWhatsApp); ok && cc.Target != "" {
		gateways = append(gateways, publish.NewWhatsApp(cc.Endpoint, cc.Token, cc.Get("phone_number_id"), cc.Target, client))
	}

	var rec distribute.Recorder
	if c.rec != nil {
		rec = c.rec
	}
	return distribute.New(distribute.Config{
		Store:     c.store,
		Shortener: short,
		Gateways:  gateways,
		Footer: publish.Footer{
			WhatsAppChannel: c.cfg.Channels.Footer.WhatsAppChannel,
			TelegramChannel: c.cfg.Channels.Footer.TelegramChannel,
		},
		Recorder:    rec,
		Logger:      c.log,
		Metrics:     c.mets,
		CallTimeout: timeout,
		Concurrency: c.cfg.Channels.Concurrency,
	})
}
