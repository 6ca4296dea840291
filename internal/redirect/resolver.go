// Package redirect implements the hot-path code-to-target resolution that
// sits behind the HTTP redirect handler: composite-cache lookup, storage
// fallback, expiry and password checks, and cache write-back.
package redirect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/cache"
	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/password"
	"github.com/shortlinker/shortlinker/internal/storage"
)

// Outcome is the closed sum type returned by Resolve.
type Outcome int

const (
	// OutcomeRedirect means the caller should issue the redirect to Link.Target.
	OutcomeRedirect Outcome = iota
	// OutcomeNotFound means the code is unknown.
	OutcomeNotFound
	// OutcomeGone means the code exists but its link has expired.
	OutcomeGone
	// OutcomePasswordRequired means the link is protected and the supplied
	// password was missing or did not match.
	OutcomePasswordRequired
)

// Result is the full return value of Resolve: an Outcome plus the link
// record when one was found (even for Gone/PasswordRequired, so callers
// can log the code).
type Result struct {
	Outcome Outcome
	Link    *models.ShortLink
}

// Resolver resolves a short code to its target: consult the composite
// cache, fall back to storage on a miss, apply expiry and password
// checks, and write back to the cache either way.
type Resolver struct {
	cache      *cache.Composite
	store      storage.Gateway
	lookupTTL  time.Duration
	log        *zap.Logger
}

// New builds a Resolver. lookupTimeout bounds the storage fallback call on
// a cache miss (500ms is a reasonable default for a Postgres fallback).
func New(c *cache.Composite, store storage.Gateway, lookupTimeout time.Duration, log *zap.Logger) *Resolver {
	if lookupTimeout <= 0 {
		lookupTimeout = 500 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{cache: c, store: store, lookupTTL: lookupTimeout, log: log}
}

// Resolve runs the full lookup protocol for one request.
//
//  1. Composite cache lookup (L0/L1/L2).
//  2. On Miss, storage fallback under a bounded timeout.
//  3. Write-back: Found -> L1+L0, storage-miss -> L2.
//  4. Expiry check.
//  5. Password check.
func (r *Resolver) Resolve(ctx context.Context, code string, suppliedPassword string) Result {
	outcome, link := r.cache.Lookup(code)

	switch outcome {
	case cache.NegativeHit:
		return Result{Outcome: OutcomeNotFound}
	case cache.Miss:
		var err error
		link, err = r.loadFromStorage(ctx, code)
		if err != nil {
			r.cache.WriteBackAbsent(code)
			return Result{Outcome: OutcomeNotFound}
		}
		r.cache.WriteBackFound(link)
	}

	now := time.Now()
	if link.IsExpired(now) {
		return Result{Outcome: OutcomeGone, Link: link}
	}

	if link.HasPassword() {
		if suppliedPassword == "" {
			return Result{Outcome: OutcomePasswordRequired, Link: link}
		}
		ok, err := password.Verify(suppliedPassword, link.Password)
		if err != nil || !ok {
			if err != nil && r.log.Core().Enabled(zap.DebugLevel) {
				r.log.Debug("password verify failed", zap.String("code", code), zap.Error(err))
			}
			return Result{Outcome: OutcomePasswordRequired, Link: link}
		}
	}

	return Result{Outcome: OutcomeRedirect, Link: link}
}

func (r *Resolver) loadFromStorage(ctx context.Context, code string) (*models.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, r.lookupTTL)
	defer cancel()
	return r.store.Get(ctx, code)
}
