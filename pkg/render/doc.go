// Package render turns flowchart text into a laid-out [scene.Scene].
//
// # Overview
//
// The [Renderer] interface is the boundary between the sync controller and
// the layout engine. [GraphvizRenderer] is the production implementation:
//
//  1. parse the text with [flowchart.Parse]
//  2. translate the graph to Graphviz DOT with [ToDOT]
//  3. lay it out in-process with go-graphviz and emit SVG
//  4. read node and edge geometry back out of the SVG
//
// Empty text renders to [scene.Empty] without touching the layout engine.
//
// # Errors
//
// Every failure is returned as a RENDER_FAILED error whose message is safe to
// show the user. [Classify] maps the family of opaque layout-engine crashes
// to [LayoutFailedMessage]; parse errors keep their original wording.
//
// # Caching
//
// [CachedRenderer] wraps any Renderer with a [cache.Cache]. Only successful
// renders are stored.
//
// [scene.Scene]: github.com/matzehuels/diagramsync/pkg/scene
// [scene.Empty]: github.com/matzehuels/diagramsync/pkg/scene
// [flowchart.Parse]: github.com/matzehuels/diagramsync/pkg/flowchart
// [cache.Cache]: github.com/matzehuels/diagramsync/pkg/cache
package render
