package httpapi

import (
	"net/http"
	"strings"

	"techflow-engine/internal/domain"
)

type SecretsHandler struct {
	Store SecretSetter
}

type setSecretReq struct {
	Channel string `json:"channel"`
	Field   string `json:"field"`
	Value   string `json:"value"`
}

// Set stores a credential in the keyring so it never lands in the
// settings table.
func (h SecretsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setSecretReq
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if req.Field == "" {
		req.Field = "token"
	}
	switch strings.ToLower(req.Channel) {
	case domain.ChannelShortener, domain.ChannelBlog, domain.ChannelTelegram, domain.ChannelWhatsApp, domain.SourceEmail:
	default:
		writeErr(w, r, &domain.ValidationError{Field: "channel", Message: "unknown channel " + req.Channel})
		return
	}
	if err := h.Store(req.Channel, req.Field, req.Value); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "failed to store secret: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
