package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/reload"
	"github.com/shortlinker/shortlinker/internal/storage"
)

// redactedValue replaces a sensitive config entry's value before it leaves
// the process in an API response.
const redactedValue = "***"

// redactEntry returns entry with Value replaced when it is marked Sensitive.
func redactEntry(entry models.ConfigEntry) models.ConfigEntry {
	if entry.Sensitive {
		entry.Value = redactedValue
	}
	return entry
}

// ConfigAPI exposes the runtime config key/value store over HTTP. Every
// write goes through storage.Gateway.WriteConfig, which also appends a
// config_history audit row, then triggers a config reload so the
// in-process atomic.Pointer[RuntimeConfig] picks it up without a restart.
type ConfigAPI struct {
	store storage.Gateway
	coord *reload.Coordinator
	log   *zap.Logger
}

// NewConfigAPI builds the admin config handler group.
func NewConfigAPI(store storage.Gateway, coord *reload.Coordinator, log *zap.Logger) *ConfigAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConfigAPI{store: store, coord: coord, log: log}
}

// Get handles GET /api/config/{key}.
func (a *ConfigAPI) Get(w http.ResponseWriter, r *http.Request, key string) {
	entry, err := a.store.ReadConfig(r.Context(), key)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redactEntry(*entry))
}

// List handles GET /api/config.
func (a *ConfigAPI) List(w http.ResponseWriter, r *http.Request) {
	entries, err := a.store.ListConfig(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}
	redacted := make([]models.ConfigEntry, len(entries))
	for i, e := range entries {
		redacted[i] = redactEntry(e)
	}
	writeJSON(w, http.StatusOK, redacted)
}

type setConfigRequest struct {
	Value string `json:"value"`
	Actor string `json:"actor,omitempty"`
}

// Set handles PUT /api/config/{key}.
func (a *ConfigAPI) Set(w http.ResponseWriter, r *http.Request, key string) {
	var req setConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Actor == "" {
		req.Actor = "admin-api"
	}
	if err := a.store.WriteConfig(r.Context(), key, req.Value, req.Actor); err != nil {
		writeStorageError(w, err)
		return
	}
	a.triggerReload(r)
	w.WriteHeader(http.StatusNoContent)
}

// Reset handles DELETE /api/config/{key}: writes an empty value. No
// default is substituted on read, so readers see the empty string.
func (a *ConfigAPI) Reset(w http.ResponseWriter, r *http.Request, key string) {
	actor := r.URL.Query().Get("actor")
	if actor == "" {
		actor = "admin-api"
	}
	if err := a.store.WriteConfig(r.Context(), key, "", actor); err != nil {
		writeStorageError(w, err)
		return
	}
	a.triggerReload(r)
	w.WriteHeader(http.StatusNoContent)
}

// triggerReload asks the coordinator to refresh RuntimeConfig so the new
// value takes effect immediately; reload failures are logged, not surfaced
// to the caller, since the write itself already succeeded.
func (a *ConfigAPI) triggerReload(r *http.Request) {
	if a.coord == nil {
		return
	}
	if _, err := a.coord.Reload(r.Context(), reload.TargetConfig); err != nil {
		a.log.Warn("config reload after write failed", zap.Error(err))
	}
}
