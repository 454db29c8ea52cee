// Package export writes a rendered scene out as an image.
//
// Two formats are supported:
//
//   - SVG: the vector output of the layout engine, passed through unchanged
//   - PNG: the scene geometry rasterized with gg on the theme's background
//
// Both are pure functions of the scene; nothing here touches controller
// state.
package export

import (
	"bytes"
	"strings"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/scene"
)

// Format constants.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// ValidFormats is the set of supported export formats.
var ValidFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// SVG returns the scene's vector output.
func SVG(sc *scene.Scene) ([]byte, error) {
	if sc.IsEmpty() || len(bytes.TrimSpace(sc.SVG)) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to export")
	}
	out := make([]byte, len(sc.SVG))
	copy(out, sc.SVG)
	return out, nil
}

// Export dispatches on format.
func Export(sc *scene.Scene, format string, opts ...PNGOption) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatSVG:
		return SVG(sc)
	case FormatPNG:
		return PNG(sc, opts...)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png)", format)
}
