// Package cache stores rendered scenes by content key.
//
// Rendering the same flowchart text twice produces the same scene, so the
// renderer can skip layout when the key for (source, theme, options) is
// already present. Backends:
//
//   - [FileCache] for the CLI, one JSON file per entry
//   - [RedisCache] for the HTTP server
//   - [NullCache] to disable caching
//
// Keys are produced by a [Keyer]; [ScopedKeyer] prefixes them per tenant.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional per-entry expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. Expired entries
	// are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Close() error
}

// SceneTTL bounds how long a rendered scene is kept.
const SceneTTL = 24 * time.Hour

// SceneKeyOpts are the render inputs that change the scene besides the
// source text.
type SceneKeyOpts struct {
	Theme    string  `json:"theme"`
	FontSize float64 `json:"font_size,omitempty"`
	NodeSep  float64 `json:"node_sep,omitempty"`
	RankSep  float64 `json:"rank_sep,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	SceneKey(source string, opts SceneKeyOpts) string
}

// DefaultKeyer hashes all key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SceneKey returns "scene:<hash>" over the source and options.
func (DefaultKeyer) SceneKey(source string, opts SceneKeyOpts) string {
	return hashKey("scene", source, opts)
}
