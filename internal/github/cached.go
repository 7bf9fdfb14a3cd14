package github

import (
	"context"
	"time"

	"github.com/chronicle-dev/chronicle/internal/cache"
	"github.com/chronicle-dev/chronicle/internal/logging"
	"github.com/chronicle-dev/chronicle/internal/models"
)

// Lister fetches the current artifacts of one kind. Satisfied by *Client.
type Lister interface {
	ListArtifacts(ctx context.Context, kind models.ArtifactKind) ([]models.Artifact, error)
}

// CachedSource serves artifacts through the kind-partitioned TTL cache.
// Consumers only ask for "current artifacts of kind K"; fetch policy lives
// here, not in the matcher.
type CachedSource struct {
	upstream Lister
	store    *cache.Store
	ttl      time.Duration
}

// NewCachedSource wraps an artifact lister with the cache store.
func NewCachedSource(upstream Lister, store *cache.Store, ttl time.Duration) *CachedSource {
	return &CachedSource{upstream: upstream, store: store, ttl: ttl}
}

// ListArtifacts returns the cached list for kind when it is inside its TTL,
// otherwise fetches from upstream and refreshes the partition.
func (c *CachedSource) ListArtifacts(ctx context.Context, kind models.ArtifactKind) ([]models.Artifact, error) {
	if cached, ok, err := c.store.GetArtifacts(kind, c.ttl); err == nil && ok {
		logging.Debug("artifact cache hit", "kind", kind, "count", len(cached))
		return cached, nil
	}

	artifacts, err := c.upstream.ListArtifacts(ctx, kind)
	if err != nil {
		return nil, err
	}

	if err := c.store.PutArtifacts(kind, artifacts); err != nil {
		// A failed cache write degrades the next run, not this one
		logging.Warn("artifact cache write failed", "kind", kind, "error", err)
	}
	logging.Debug("artifact cache refresh", "kind", kind, "count", len(artifacts))
	return artifacts, nil
}
