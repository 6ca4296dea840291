package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlinker/shortlinker/internal/clicks"
	"github.com/shortlinker/shortlinker/internal/errs"
	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/redirect"
	"github.com/shortlinker/shortlinker/internal/storage"
)

// fakeRouterGateway backs both the redirect fast path and the readiness
// probe in router tests.
type fakeRouterGateway struct {
	storage.Gateway
	link *models.ShortLink
}

func (f *fakeRouterGateway) Get(ctx context.Context, code string) (*models.ShortLink, error) {
	if f.link == nil || f.link.Code != code {
		return nil, errs.ErrNotFound
	}
	return f.link, nil
}

func (f *fakeRouterGateway) Ping(ctx context.Context) error { return nil }

func buildTestRouter(t *testing.T, adminToken string) http.Handler {
	t.Helper()
	gw := &fakeRouterGateway{link: &models.ShortLink{Code: "live", Target: "https://example.com"}}
	c := newTestLinksComposite()
	c.L0.Set("live") // the live code is known to L0, as after a boot-time Rebuild
	resolver := redirect.New(c, gw, time.Second, nil)
	ingress := clicks.NewIngress(10, nil)
	redirectHandler := NewRedirectHandler(resolver, ingress, nil)
	linksAPI := NewLinksAPI(gw, c, nil)

	return NewRouter(RouterConfig{
		Redirect:   redirectHandler,
		Links:      linksAPI,
		Store:      gw,
		AdminToken: adminToken,
		Log:        nil,
	})
}

func TestRouterServesHealthWithoutAuth(t *testing.T) {
	router := buildTestRouter(t, "supersecret")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterRedirectsKnownCode(t *testing.T) {
	router := buildTestRouter(t, "")
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))
}

func TestRouterApiRequiresAuthWhenTokenSet(t *testing.T) {
	router := buildTestRouter(t, "supersecret")
	req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterApiAllowsAuthorizedRequest(t *testing.T) {
	router := buildTestRouter(t, "supersecret")
	req := httptest.NewRequest(http.MethodGet, "/api/links/live", nil)
	req.Header.Set("Authorization", "Bearer supersecret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterUnknownApiPathIsNotFound(t *testing.T) {
	router := buildTestRouter(t, "")
	req := httptest.NewRequest(http.MethodGet, "/api/does-not-exist", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
