package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/cache"
	"github.com/shortlinker/shortlinker/internal/codegen"
	"github.com/shortlinker/shortlinker/internal/errs"
	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/password"
	"github.com/shortlinker/shortlinker/internal/storage"
)

// LinksAPI serves the admin CRUD + bulk import/export surface: create,
// fetch, delete, list, and bulk import/export of short links.
type LinksAPI struct {
	store storage.Gateway
	cache *cache.Composite
	log   *zap.Logger
}

// NewLinksAPI builds the admin links handler group.
func NewLinksAPI(store storage.Gateway, c *cache.Composite, log *zap.Logger) *LinksAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &LinksAPI{store: store, cache: c, log: log}
}

type createLinkRequest struct {
	Code      string     `json:"code"`
	Target    string     `json:"target"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Password  string     `json:"password,omitempty"`
}

// Create handles POST /api/links.
func (a *LinksAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Target == "" || !isValidTarget(req.Target) {
		writeJSONError(w, http.StatusBadRequest, "target must be an http(s) URL")
		return
	}
	if req.Code == "" {
		req.Code = codegen.ShortCode()
	}

	hashed, err := password.ProcessNew(req.Password)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "password hashing failed")
		return
	}

	link := &models.ShortLink{
		Code:      req.Code,
		Target:    req.Target,
		CreatedAt: time.Now(),
		ExpiresAt: req.ExpiresAt,
		Password:  hashed,
	}
	if err := a.store.Upsert(r.Context(), link); err != nil {
		writeStorageError(w, err)
		return
	}
	a.cache.OnCreate(link)
	writeJSON(w, http.StatusCreated, link)
}

// Get handles GET /api/links/{code}.
func (a *LinksAPI) Get(w http.ResponseWriter, r *http.Request, code string) {
	link, err := a.store.Get(r.Context(), code)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// Delete handles DELETE /api/links/{code}.
func (a *LinksAPI) Delete(w http.ResponseWriter, r *http.Request, code string) {
	if err := a.store.Remove(r.Context(), code); err != nil {
		writeStorageError(w, err)
		return
	}
	a.cache.OnDelete(code)
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/links.
func (a *LinksAPI) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	filter := models.ListFilter{
		Query:       q.Get("q"),
		OnlyActive:  q.Get("only_active") == "true",
		OnlyExpired: q.Get("only_expired") == "true",
		Page:        page,
		PageSize:    pageSize,
	}
	links, total, err := a.store.List(r.Context(), filter)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"links": links, "total": total})
}

// Export handles GET /api/links/export?format=csv|json.
func (a *LinksAPI) Export(w http.ResponseWriter, r *http.Request) {
	links, _, err := a.store.List(r.Context(), models.ListFilter{PageSize: 1 << 30})
	if err != nil {
		writeStorageError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=links.csv")
		writer := csv.NewWriter(w)
		writer.Write([]string{"code", "target", "created_at", "expires_at", "click_count"})
		for _, l := range links {
			expires := ""
			if l.ExpiresAt != nil {
				expires = l.ExpiresAt.Format(time.RFC3339)
			}
			writer.Write([]string{l.Code, l.Target, l.CreatedAt.Format(time.RFC3339), expires, strconv.FormatInt(l.ClickCount, 10)})
		}
		writer.Flush()
		return
	}
	writeJSON(w, http.StatusOK, links)
}

type importRequest struct {
	Links []models.ShortLink `json:"links"`
	Mode  string              `json:"mode"`
}

// Import handles POST /api/links/import (JSON body only; CSV import is not
// supported here or by the CLI, which reads a JSON file).
func (a *LinksAPI) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Links) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no links to import")
		return
	}

	mode := models.SkipExisting
	if req.Mode == "overwrite" {
		mode = models.Overwrite
	}

	for i := range req.Links {
		hashed, err := password.ProcessImported(req.Links[i].Password)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid password in import row")
			return
		}
		req.Links[i].Password = hashed
	}

	count, err := a.store.BulkUpsert(r.Context(), req.Links, mode)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	for i := range req.Links {
		a.cache.OnCreate(&req.Links[i])
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

// isValidTarget reports whether target is an acceptable redirect
// destination: only http/https schemes are allowed.
func isValidTarget(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
