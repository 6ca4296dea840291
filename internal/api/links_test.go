package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlinker/shortlinker/internal/cache"
	"github.com/shortlinker/shortlinker/internal/errs"
	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/storage"
)

// fakeLinksGateway embeds the Gateway interface (nil) and overrides only
// what LinksAPI calls.
type fakeLinksGateway struct {
	storage.Gateway
	upserted *models.ShortLink
	getErr   error
	getLink  *models.ShortLink
}

func (f *fakeLinksGateway) Upsert(ctx context.Context, link *models.ShortLink) error {
	f.upserted = link
	return nil
}

func (f *fakeLinksGateway) Get(ctx context.Context, code string) (*models.ShortLink, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getLink, nil
}

func newTestLinksComposite() *cache.Composite {
	return cache.New(
		cache.NewExistenceFilter(100),
		cache.NewObjectCache(10, time.Minute),
		cache.NewNegativeCache(10, time.Minute),
		cache.NoopMetrics{},
	)
}

func TestCreateRejectsNonHTTPTarget(t *testing.T) {
	gw := &fakeLinksGateway{}
	a := NewLinksAPI(gw, newTestLinksComposite(), nil)

	body, _ := json.Marshal(map[string]string{"target": "ftp://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/api/links", bytes.NewReader(body))
	w := httptest.NewRecorder()

	a.Create(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, gw.upserted)
}

func TestCreateGeneratesCodeWhenOmitted(t *testing.T) {
	gw := &fakeLinksGateway{}
	a := NewLinksAPI(gw, newTestLinksComposite(), nil)

	body, _ := json.Marshal(map[string]string{"target": "https://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/api/links", bytes.NewReader(body))
	w := httptest.NewRecorder()

	a.Create(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, gw.upserted)
	assert.NotEmpty(t, gw.upserted.Code)
	assert.Len(t, gw.upserted.Code, 6)
}

func TestCreateHonorsExplicitCode(t *testing.T) {
	gw := &fakeLinksGateway{}
	a := NewLinksAPI(gw, newTestLinksComposite(), nil)

	body, _ := json.Marshal(map[string]string{"target": "https://example.com", "code": "custom1"})
	req := httptest.NewRequest(http.MethodPost, "/api/links", bytes.NewReader(body))
	w := httptest.NewRecorder()

	a.Create(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "custom1", gw.upserted.Code)
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	gw := &fakeLinksGateway{}
	a := NewLinksAPI(gw, newTestLinksComposite(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/links", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()

	a.Create(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReturnsNotFoundOnMissingCode(t *testing.T) {
	gw := &fakeLinksGateway{getErr: errs.ErrNotFound}
	a := NewLinksAPI(gw, newTestLinksComposite(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/links/missing", nil)
	w := httptest.NewRecorder()

	a.Get(w, req, "missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIsValidTarget(t *testing.T) {
	assert.True(t, isValidTarget("https://example.com"))
	assert.True(t, isValidTarget("http://example.com"))
	assert.False(t, isValidTarget("ftp://example.com"))
	assert.False(t, isValidTarget("not a url :://"))
}
