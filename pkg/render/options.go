package render

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diagramsync/pkg/cache"
	"github.com/matzehuels/diagramsync/pkg/errors"
)

// Layout defaults.
const (
	DefaultFontName = "Helvetica"
	DefaultFontSize = 14.0
	DefaultNodeSep  = 0.4
	DefaultRankSep  = 0.5
)

// Options configures DOT generation and layout.
type Options struct {
	Theme    string
	FontName string
	FontSize float64
	NodeSep  float64 // inches between nodes in a rank
	RankSep  float64 // inches between ranks
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.Theme == "" {
		o.Theme = ThemeLight
	}
	if o.FontName == "" {
		o.FontName = DefaultFontName
	}
	if o.FontSize == 0 {
		o.FontSize = DefaultFontSize
	}
	if o.NodeSep == 0 {
		o.NodeSep = DefaultNodeSep
	}
	if o.RankSep == 0 {
		o.RankSep = DefaultRankSep
	}
}

// Validate checks the options after defaults are applied.
func (o *Options) Validate() error {
	if err := errors.ValidateTheme(o.Theme); err != nil {
		return err
	}
	if o.FontSize < 4 || o.FontSize > 72 {
		return errors.New(errors.ErrCodeInvalidInput, "font size %g out of range [4, 72]", o.FontSize)
	}
	if o.NodeSep < 0 || o.RankSep < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "node and rank separation must not be negative")
	}
	return nil
}

// KeyOpts returns the cache key components for these options.
func (o Options) KeyOpts() cache.SceneKeyOpts {
	return cache.SceneKeyOpts{
		Theme:    o.Theme,
		FontSize: o.FontSize,
		NodeSep:  o.NodeSep,
		RankSep:  o.RankSep,
	}
}

// Option configures a GraphvizRenderer.
type Option func(*GraphvizRenderer)

// WithFontSize sets the node label font size in points.
func WithFontSize(size float64) Option {
	return func(r *GraphvizRenderer) { r.opts.FontSize = size }
}

// WithSeparation sets node and rank separation in inches.
func WithSeparation(node, rank float64) Option {
	return func(r *GraphvizRenderer) {
		r.opts.NodeSep = node
		r.opts.RankSep = rank
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *GraphvizRenderer) {
		if l != nil {
			r.logger = l
		}
	}
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
