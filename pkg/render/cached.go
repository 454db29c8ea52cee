package render

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diagramsync/pkg/cache"
	"github.com/matzehuels/diagramsync/pkg/observability"
	"github.com/matzehuels/diagramsync/pkg/scene"
)

// OptionsProvider is implemented by renderers whose output depends on
// layout options beyond source and theme.
type OptionsProvider interface {
	Options(theme string) Options
}

// CachedRenderer serves repeated renders of identical text from a cache.
type CachedRenderer struct {
	inner  Renderer
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
}

// NewCachedRenderer wraps inner. A nil cache disables caching and a nil
// keyer uses the default keyer.
func NewCachedRenderer(inner Renderer, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *CachedRenderer {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &CachedRenderer{inner: inner, cache: c, keyer: keyer, logger: logger}
}

type cachedScene struct {
	Scene *scene.Scene `json:"scene"`
	SVG   []byte       `json:"svg"`
}

// Render implements Renderer. Cache failures are logged and fall through to
// the inner renderer.
func (r *CachedRenderer) Render(ctx context.Context, source, theme string) (*scene.Scene, error) {
	key := r.Key(source, theme)

	if data, hit, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("scene cache read failed", "error", err)
	} else if hit {
		var cs cachedScene
		if err := json.Unmarshal(data, &cs); err == nil && cs.Scene != nil {
			observability.Cache().OnCacheHit(ctx, "scene")
			cs.Scene.SVG = cs.SVG
			return cs.Scene, nil
		}
		r.logger.Warn("discarding unreadable scene cache entry", "key", key)
	}
	observability.Cache().OnCacheMiss(ctx, "scene")

	sc, err := r.inner.Render(ctx, source, theme)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cachedScene{Scene: sc, SVG: sc.SVG})
	if err != nil {
		return sc, nil
	}
	if err := r.cache.Set(ctx, key, data, cache.SceneTTL); err != nil {
		r.logger.Warn("scene cache write failed", "error", err)
		return sc, nil
	}
	observability.Cache().OnCacheSet(ctx, "scene", len(data))
	return sc, nil
}

// Key returns the cache key for source rendered in theme.
func (r *CachedRenderer) Key(source, theme string) string {
	opts := Options{Theme: theme}
	if p, ok := r.inner.(OptionsProvider); ok {
		opts = p.Options(theme)
	}
	opts.SetDefaults()
	return r.keyer.SceneKey(source, opts.KeyOpts())
}

var _ Renderer = (*CachedRenderer)(nil)
