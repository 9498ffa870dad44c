// internal/services/category_cache.go
package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/teambind/support-server/internal/metrics"
	"github.com/teambind/support-server/internal/models"
	"github.com/teambind/support-server/internal/repository"
)

// CategoryCache validates (reference type, category) pairs at report
// creation time.
type CategoryCache interface {
	Lookup(referenceType models.ReferenceType, category string) (*models.ReportCategory, bool)
	Reload(ctx context.Context) error
	Initialized() bool
	Size() int
}

const reloadTimeout = 30 * time.Second

type categoryKey struct {
	referenceType models.ReferenceType
	category      string
}

type CategoryCacheOptions struct {
	// InitialAttempts bounds Initialize. Defaults to 3.
	InitialAttempts int
	// RetryDelay separates initial attempts. Defaults to 2s.
	RetryDelay time.Duration
}

// InMemoryCategoryCache holds the whole category table. Reloads build a new
// map and swap it in, so readers never see a partial table.
type InMemoryCategoryCache struct {
	store   repository.CategoryStore
	metrics *metrics.Collector
	opts    CategoryCacheOptions

	entries atomic.Pointer[map[categoryKey]models.ReportCategory]
	reloads singleflight.Group
}

func NewInMemoryCategoryCache(store repository.CategoryStore, collector *metrics.Collector, opts CategoryCacheOptions) *InMemoryCategoryCache {
	if opts.InitialAttempts <= 0 {
		opts.InitialAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	return &InMemoryCategoryCache{
		store:   store,
		metrics: collector,
		opts:    opts,
	}
}

// Initialize performs the startup load, retrying on failure. The server
// keeps running if every attempt fails; lookups then miss until a
// successful Reload.
func (c *InMemoryCategoryCache) Initialize(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.opts.InitialAttempts; attempt++ {
		if lastErr = c.Reload(ctx); lastErr == nil {
			return nil
		}

		logrus.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": c.opts.InitialAttempts,
		}).WithError(lastErr).Error("Failed to initialize category cache")

		if attempt == c.opts.InitialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.RetryDelay):
		}
	}
	return fmt.Errorf("category cache not initialized after %d attempts: %w", c.opts.InitialAttempts, lastErr)
}

// Reload replaces the cache contents from the store. Concurrent calls share
// one store read, which outlives any single caller's cancellation; each
// caller still stops waiting when its own ctx is done.
func (c *InMemoryCategoryCache) Reload(ctx context.Context) error {
	shared := context.WithoutCancel(ctx)
	result := c.reloads.DoChan("reload", func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(shared, reloadTimeout)
		defer cancel()
		return nil, c.load(loadCtx)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-result:
		return res.Err
	}
}

func (c *InMemoryCategoryCache) load(ctx context.Context) error {
	categories, err := c.store.FindAll(ctx)
	if err != nil {
		c.metrics.CategoryReload(false, 0)
		return fmt.Errorf("load categories: %w", err)
	}

	next := make(map[categoryKey]models.ReportCategory, len(categories))
	for _, category := range categories {
		key := categoryKey{
			referenceType: category.ReferenceType,
			category:      models.NormalizeCategory(category.Category),
		}
		if _, dup := next[key]; dup {
			logrus.WithFields(logrus.Fields{
				"reference_type": key.referenceType,
				"category":       key.category,
			}).Warn("Duplicate category, keeping first occurrence")
			continue
		}
		category.Category = key.category
		next[key] = category
	}

	c.entries.Store(&next)
	c.metrics.CategoryReload(true, len(next))
	logrus.WithField("size", len(next)).Info("Category cache loaded")
	return nil
}

func (c *InMemoryCategoryCache) Lookup(referenceType models.ReferenceType, category string) (*models.ReportCategory, bool) {
	entries := c.entries.Load()
	if entries == nil {
		logrus.WithFields(logrus.Fields{
			"reference_type": referenceType,
			"category":       category,
		}).Warn("Category lookup before cache initialization")
		return nil, false
	}

	found, ok := (*entries)[categoryKey{referenceType: referenceType, category: models.NormalizeCategory(category)}]
	if !ok {
		return nil, false
	}
	return &found, true
}

func (c *InMemoryCategoryCache) Initialized() bool {
	return c.entries.Load() != nil
}

func (c *InMemoryCategoryCache) Size() int {
	entries := c.entries.Load()
	if entries == nil {
		return 0
	}
	return len(*entries)
}
