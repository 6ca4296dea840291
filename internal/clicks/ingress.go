package clicks

import (
	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/metrics"
	"github.com/shortlinker/shortlinker/internal/models"
)

// Ingress is the buffered channel the redirect hot path sends click
// events onto, owned by an instance instead of a package-level global so
// tests can build an isolated pipeline.
type Ingress struct {
	ch  chan models.ClickDetail
	log *zap.Logger
}

// NewIngress builds an Ingress with the given channel capacity.
func NewIngress(capacity int, log *zap.Logger) *Ingress {
	if capacity <= 0 {
		capacity = 4096
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingress{ch: make(chan models.ClickDetail, capacity), log: log}
}

// TrySend enqueues a click without blocking the caller (the redirect hot
// path). A full channel drops the event and bumps a counter rather than
// stalling the response.
func (i *Ingress) TrySend(detail models.ClickDetail) {
	select {
	case i.ch <- detail:
	default:
		metrics.IncClicksDropped("full")
		if i.log.Core().Enabled(zap.DebugLevel) {
			i.log.Debug("click dropped, ingress full", zap.String("code", detail.Code))
		}
	}
}

// channel exposes the underlying receive side to the Aggregator.
func (i *Ingress) channel() <-chan models.ClickDetail { return i.ch }
