package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"techflow-engine/internal/domain"
	"techflow-engine/internal/logger"
)

func scrapeCommand() *cobra.Command {
	rc := domain.DefaultRunConfig()
	var noShortener bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape in the foreground and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if noShortener {
				rc.UseShortener = false
			}
			return runScrape(cmd.Context(), rc)
		},
	}
	f := cmd.Flags()
	f.IntVar(&rc.MaxJobs, "max-jobs", rc.MaxJobs, "stop after this many accepted jobs")
	f.StringSliceVar(&rc.Sources, "sources", rc.Sources, "sources to search, in order")
	f.BoolVar(&rc.UploadToBlog, "blog", false, "publish accepted jobs to the blog")
	f.BoolVar(&rc.SendToTelegram, "telegram", false, "send accepted jobs to Telegram")
	f.BoolVar(&rc.SendToWhatsApp, "whatsapp", false, "send accepted jobs to WhatsApp")
	f.BoolVar(&rc.UseSecondaryFetch, "secondary", false, "fetch job pages for requirements")
	f.BoolVar(&noShortener, "no-shortener", false, "do not shorten links")
	return cmd
}

func runScrape(ctx context.Context, rc domain.RunConfig) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	cfg, warnings, err := loadConfig(dataDir)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	for _, w := range warnings {
		log.Warn("config warning", logger.String("warning", w))
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.coord.Start(ctx, rc)
	if err != nil {
		return err
	}
	defer func() { _ = a.coord.Shutdown(context.Background()) }()

	// first interrupt stops the run gracefully
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		if ctx.Err() == nil {
			a.coord.Stop(context.Background())
		}
	}()

	final, err := a.coord.Wait(ctx, run.ID)
	if err != nil {
		return err
	}
	if final.Status == domain.StatusFailed {
		return fmt.Errorf("run %s failed: %s", final.ID, final.Error)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(final.Summary)
}
