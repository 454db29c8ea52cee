// Package generate is the boundary to the external service that turns a
// natural-language prompt into a diagram.
//
// The service itself is opaque: a [Client] takes a prompt and returns raw
// model output. This package only extracts the usable part of that output,
// flowchart text for [KindText] requests and a shape list for
// [KindShapes] requests.
package generate

import (
	"context"
	"regexp"
	"strings"

	"github.com/matzehuels/diagramsync/pkg/errors"
)

// Kind selects what the service is asked to produce.
type Kind string

const (
	KindText   Kind = "text"
	KindShapes Kind = "shapes"
)

// Client generates diagram content from a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string, kind Kind) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, prompt string, kind Kind) (string, error)

func (f ClientFunc) Generate(ctx context.Context, prompt string, kind Kind) (string, error) {
	return f(ctx, prompt, kind)
}

var (
	codeTagRe   = regexp.MustCompile(`(?s)<code>(.*?)</code>`)
	sourceFence = regexp.MustCompile("(?s)```(?:mermaid|flowchart)?[ \\t]*\\n(.*?)\\n?```")
	jsonFence   = regexp.MustCompile("(?s)```(?:json)?[ \\t]*\\n(.*?)\\n?```")
	headerRe    = regexp.MustCompile(`(?m)^\s*(graph|flowchart)\b`)
)

// ExtractSource pulls flowchart text out of model output. It looks for a
// <code> block, then a fenced block, then a bare header line.
func ExtractSource(content string) (string, error) {
	candidates := []string{}
	if m := codeTagRe.FindStringSubmatch(content); len(m) >= 2 {
		candidates = append(candidates, m[1])
	}
	if m := sourceFence.FindStringSubmatch(content); len(m) >= 2 {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, content)

	for _, c := range candidates {
		loc := headerRe.FindStringIndex(c)
		if loc == nil {
			continue
		}
		return strings.TrimSpace(c[loc[0]:]) + "\n", nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "no flowchart found in generated output")
}

// ExtractJSON pulls a shape list out of model output: the first fenced
// block, or else the outermost bracketed span. The result still has to go
// through elements.Parse.
func ExtractJSON(content string) []byte {
	if m := jsonFence.FindStringSubmatch(content); len(m) >= 2 {
		return []byte(strings.TrimSpace(m[1]))
	}
	start := strings.IndexAny(content, "[{")
	if start >= 0 {
		closer := "]"
		if content[start] == '{' {
			closer = "}"
		}
		if end := strings.LastIndex(content, closer); end > start {
			return []byte(content[start : end+1])
		}
	}
	return []byte(strings.TrimSpace(content))
}

// Text asks c for a flowchart and returns validated source text.
func Text(ctx context.Context, c Client, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "prompt cannot be empty")
	}
	out, err := c.Generate(ctx, prompt, KindText)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeConversion, err, "generation failed")
	}
	src, err := ExtractSource(out)
	if err != nil {
		return "", err
	}
	if err := errors.ValidateSource(src); err != nil {
		return "", err
	}
	return src, nil
}

// Shapes asks c for a shape list and returns the extracted JSON.
func Shapes(ctx context.Context, c Client, prompt string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "prompt cannot be empty")
	}
	out, err := c.Generate(ctx, prompt, KindShapes)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConversion, err, "generation failed")
	}
	return ExtractJSON(out), nil
}
