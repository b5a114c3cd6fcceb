package httpapi

import (
	"net/http"

	"techflow-engine/internal/domain"
)

type ScrapeHandler struct {
	Scraper    Scraper
	ShortLinks ShortLinks
}

// scrapeRequest accepts the current field names and the dashboard's older
// ones (upload_to_blogger, use_tinyurl, use_selenium_skills).
type scrapeRequest struct {
	domain.RunConfig
	UploadToBlogger   *bool `json:"upload_to_blogger"`
	UseTinyURL        *bool `json:"use_tinyurl"`
	UseSeleniumSkills *bool `json:"use_selenium_skills"`
}

func (req scrapeRequest) config() domain.RunConfig {
	rc := req.RunConfig
	if req.UploadToBlogger != nil {
		rc.UploadToBlog = *req.UploadToBlogger
	}
	if req.UseTinyURL != nil {
		rc.UseShortener = *req.UseTinyURL
	}
	if req.UseSeleniumSkills != nil {
		rc.UseSecondaryFetch = *req.UseSeleniumSkills
	}
	rc.Trigger = domain.TriggerManual
	return rc
}

func (h ScrapeHandler) Start(w http.ResponseWriter, r *http.Request) {
	req := scrapeRequest{RunConfig: domain.DefaultRunConfig()}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}

	run, err := h.Scraper.Start(r.Context(), req.config())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]any{
		"status":  "started",
		"message": domain.MsgScrapeStarted,
		"run_id":  run.ID,
	})
}

func (h ScrapeHandler) Stop(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.Scraper.Stop(r.Context())
	status := "success"
	if !ok {
		status = "info"
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": status, "message": msg})
}

func (h ScrapeHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Scraper.Status())
}

func (h ScrapeHandler) UpdateShortLinks(w http.ResponseWriter, r *http.Request) {
	n, err := h.ShortLinks.RefreshShortLinks(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "updated": n})
}
