package httpapi

import (
	"net/http"

	"techflow-engine/internal/logger"
)

// NewMux registers every control-plane route.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	sch := ScrapeHandler{Scraper: d.Scraper, ShortLinks: d.ShortLinks}
	mux.HandleFunc("/api/scrape", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sch.Start,
	}))
	mux.HandleFunc("/api/stop-scraping", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sch.Stop,
	}))
	mux.HandleFunc("/api/scraping-status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sch.Status,
	}))
	mux.HandleFunc("/api/update-tinyurls", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sch.UpdateShortLinks,
	}))

	jh := JobsHandler{Jobs: d.Jobs, Hub: d.Hub}
	mux.HandleFunc("/api/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/api/jobs/", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: jh.DeleteByPath,
	}))
	mux.HandleFunc("/api/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Stats,
	}))

	seth := SettingsHandler{Settings: d.Settings}
	mux.HandleFunc("/api/settings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  seth.Get,
		http.MethodPost: seth.Update,
	}))
	if d.SetSecret != nil {
		sh := SecretsHandler{Store: d.SetSecret}
		mux.HandleFunc("/api/secrets", methodMux(map[string]http.HandlerFunc{
			http.MethodPost: sh.Set,
		}))
	}

	sched := ScheduleHandler{Schedule: d.Schedule}
	mux.HandleFunc("/api/schedule", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  sched.Get,
		http.MethodPost: sched.Save,
	}))

	lh := LogsHandler{Logs: d.Logs}
	mux.HandleFunc("/api/logs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:    lh.List,
		http.MethodDelete: lh.DeleteAll,
	}))

	ah := AnalyticsHandler{Analytics: d.Analytics}
	mux.HandleFunc("/api/analytics/summary", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.Summary,
	}))
	mux.HandleFunc("/api/analytics/history", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.History,
	}))

	if d.Hub != nil {
		eh := EventsHandler{Hub: d.Hub}
		mux.HandleFunc("/api/events", methodMux(map[string]http.HandlerFunc{
			http.MethodGet: eh.ServeSSE,
		}))
	}

	hh := HealthHandler{DB: d.DB}
	mux.HandleFunc("/api/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics)
	}
	for pattern, h := range d.Routes {
		mux.Handle(pattern, h)
	}

	return mux
}

// NewRouter wraps the mux in the standard middleware chain.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = logger.Component(log, "http")
	return Chain(NewMux(d),
		RequestID,
		Recover(log),
		AccessLog(log),
		Cors(d.CORSOrigins),
		APIKey(d.APIKey),
	)
}
