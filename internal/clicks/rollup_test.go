package clicks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/storage"
)

func TestBumpIgnoresEmptyKey(t *testing.T) {
	m := map[string]int64{}
	bump(m, "")
	bump(m, "x")
	bump(m, "x")
	assert.Equal(t, map[string]int64{"x": 2}, m)
}

func TestTopKTruncatesToLargest(t *testing.T) {
	m := map[string]int64{"a": 1, "b": 5, "c": 3, "d": 4}
	got := topK(m, 2)
	assert.Equal(t, map[string]int64{"b": 5, "d": 4}, got)
}

func TestTopKPassesThroughWhenUnderLimit(t *testing.T) {
	m := map[string]int64{"a": 1}
	assert.Equal(t, m, topK(m, 10))
}

// rollupGateway records what the scheduler writes for assertion.
type rollupGateway struct {
	storage.Gateway
	rows           []models.ClickDetail
	hourly         []*models.HourlyRollup
	daily          []*models.DailyRollup
	globalHourly   *models.GlobalHourlyRollup
	globalDaily    *models.GlobalDailyRollup
}

func (g *rollupGateway) ClickLogsInWindow(ctx context.Context, start, end time.Time) ([]models.ClickDetail, error) {
	return g.rows, nil
}

func (g *rollupGateway) RollupWriteHourly(ctx context.Context, r *models.HourlyRollup) error {
	g.hourly = append(g.hourly, r)
	return nil
}

func (g *rollupGateway) RollupWriteDaily(ctx context.Context, r *models.DailyRollup) error {
	g.daily = append(g.daily, r)
	return nil
}

func (g *rollupGateway) RollupWriteGlobalHourly(ctx context.Context, r *models.GlobalHourlyRollup) error {
	g.globalHourly = r
	return nil
}

func (g *rollupGateway) RollupWriteGlobalDaily(ctx context.Context, r *models.GlobalDailyRollup) error {
	g.globalDaily = r
	return nil
}

func TestComputeHourlyAggregatesPerCodeAndGlobal(t *testing.T) {
	gw := &rollupGateway{rows: []models.ClickDetail{
		{Code: "a", Referrer: "ref1", Country: "US", Source: "direct"},
		{Code: "a", Referrer: "ref1", Country: "US", Source: "direct"},
		{Code: "b", Referrer: "ref2", Country: "DE", Source: "ref:x"},
	}}
	s := NewRollupScheduler(gw, nil)

	bucket := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.computeHourly(context.Background(), bucket))

	require.Len(t, gw.hourly, 2)
	byCode := map[string]*models.HourlyRollup{}
	for _, r := range gw.hourly {
		byCode[r.Code] = r
	}
	assert.EqualValues(t, 2, byCode["a"].ClickCount)
	assert.EqualValues(t, 1, byCode["b"].ClickCount)

	require.NotNil(t, gw.globalHourly)
	assert.EqualValues(t, 3, gw.globalHourly.TotalClicks)
	assert.Equal(t, 2, gw.globalHourly.UniqueLinks)
}

func TestComputeDailyTracksUniqueVisitors(t *testing.T) {
	gw := &rollupGateway{rows: []models.ClickDetail{
		{Code: "a", IP: "1.1.1.1", UserAgent: "ua1"},
		{Code: "a", IP: "1.1.1.1", UserAgent: "ua1"}, // same visitor twice
		{Code: "a", IP: "2.2.2.2", UserAgent: "ua2"}, // distinct visitor
	}}
	s := NewRollupScheduler(gw, nil)

	bucket := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.computeDaily(context.Background(), bucket))

	require.Len(t, gw.daily, 1)
	assert.Equal(t, 2, gw.daily[0].UniqueVisitors)
	assert.EqualValues(t, 3, gw.daily[0].ClickCount)
}
