// Package flowchart works on flowchart description text.
//
// # Overview
//
// The text language is a compact graph description:
//
//	graph TD
//	    A[Start] --> B{Decide}
//	    B -- yes --> C(Done)
//	    B -->|no| A
//
// The first line declares the direction (TD, TB, LR, RL or BT). Nodes are an
// ID followed by a label inside a shape delimiter pair; edges join node
// references with a connector.
//
// # Rewrites
//
// Editing operations never build a syntax tree. They rewrite the source with
// regular expressions and leave every other byte untouched:
//
//   - [ToggleOrientation] flips the direction keyword between TD and LR
//   - [InjectShape] appends a new node line with a fresh ID
//   - [ReplaceLabel] renames the first delimiter-enclosed occurrence of a label
//
// [ReplaceLabel] is first-match only: when two nodes share a label the
// earlier one is rewritten. There is no source map.
//
// # Layout parsing
//
// [Parse] reads the same text into a [Graph] for the layout engine. It is
// strict about structure and reports failures as "Parse error on line N"
// messages that are shown to the user verbatim.
package flowchart
