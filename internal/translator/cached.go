package translator

import (
	"context"

	"go.uber.org/zap"

	"github.com/pagetran/pagetran/internal/store"
)

// Cached decorates a Service with the persistent translation cache:
// hits short-circuit the backend, successful results are written back
// best-effort (a failed write never fails the translation).
type Cached struct {
	inner Service
	db    *store.Store
	log   *zap.Logger
}

// NewCached wraps svc with db. A nil logger is replaced by a nop.
func NewCached(svc Service, db *store.Store, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: svc, db: db, log: logger}
}

func (c *Cached) Name() string { return c.inner.Name() + "+cache" }

func (c *Cached) Translate(ctx context.Context, req Request) (*Result, error) {
	key := store.Key(req.Text, req.SourceLang, req.TargetLang, req.Context)

	if cached, found, err := c.db.Get(ctx, key); err == nil && found {
		c.log.Debug("cache hit", zap.String("key", key[:8]))
		return &Result{Translation: cached, Cached: true}, nil
	} else if err != nil {
		c.log.Warn("cache lookup failed", zap.Error(err))
	}

	res, err := c.inner.Translate(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.db.Put(ctx, key, req.Text, req.SourceLang, req.TargetLang, res.Translation); err != nil {
		c.log.Warn("cache write failed", zap.Error(err))
	}
	return res, nil
}
