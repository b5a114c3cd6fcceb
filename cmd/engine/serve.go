package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"techflow-engine/internal/config"
	"techflow-engine/internal/httpapi"
	"techflow-engine/internal/logger"
	"techflow-engine/internal/secrets"
)

func serveCommand() *cobra.Command {
	var host string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control-plane API and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), host)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "interface to listen on")
	return cmd
}

func runServe(ctx context.Context, host string) error {
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

	if cfg.App.APIKey == "" {
		return errEmptyAPIKey
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer a.sched.Stop()

	addr := net.JoinHostPort(host, fmt.Sprint(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{ReadHeaderTimeout: 5 * time.Second}

	token, err := writeShutdownToken(cfg.App.DataDir)
	if err != nil {
		return err
	}
	srv.Handler = httpapi.NewRouter(apiDeps(a, cfg, log, shutdownHandler(token, srv)))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info("engine listening", logger.String("addr", "http://"+addr), logger.String("data_dir", cfg.App.DataDir))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := a.coord.Shutdown(shutdownCtx); err != nil {
		log.Warn("run did not finish before shutdown", logger.Error(err))
	}
	log.Info("engine stopped")
	return nil
}

var errEmptyAPIKey = errors.New("app.api_key is empty; set it in config.yml or TECHFLOW_API_KEY")

// apiDeps wires the app into the control plane. shutdown is served at
// /shutdown, outside the API key guard.
func apiDeps(a *app, cfg config.Config, log logger.Logger, shutdown http.Handler) httpapi.Deps {
	return httpapi.Deps{
		Scraper:    a.coord,
		Jobs:       a.db,
		Logs:       a.db,
		Settings:   a.set,
		Schedule:   a.sched,
		Analytics:  a.stats,
		ShortLinks: a.dist,
		DB:         a.db,
		SetSecret:  secrets.Set,
		Hub:        a.hub,
		Metrics:    a.mets.Handler(),

		Logger:      log,
		APIKey:      cfg.App.APIKey,
		CORSOrigins: cfg.App.CORSOrigins,
		Routes:      map[string]http.Handler{"/shutdown": shutdown},
	}
}

// writeShutdownToken stores a fresh token the desktop shell reads to stop
// the engine.
func writeShutdownToken(dataDir string) (string, error) {
	token, err := randomToken(32)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dataDir, "shutdown.token"), []byte(token), 0o600); err != nil {
		return "", fmt.Errorf("write shutdown token: %w", err)
	}
	return token, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownHandler(token string, srv *http.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// local-only
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}
}
