package render

import (
	"context"
	"strings"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/scene"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Renderer lays out flowchart text.
type Renderer interface {
	// Render returns the scene for source in the given theme. Blank source
	// yields scene.Empty and no error.
	Render(ctx context.Context, source, theme string) (*scene.Scene, error)
}

// LayoutFailedMessage replaces opaque layout-engine crash messages.
const LayoutFailedMessage = "Layout calculation failed. Try simplifying the diagram or switching orientation."

// layoutFailures are substrings of crash messages that say nothing useful
// about what the user wrote.
var layoutFailures = []string{
	"no suitable point",
	"Cannot read properties of undefined",
	"undefined is not an object",
	"trouble in init_rank",
	"layout was not done",
}

// Classify converts err into a RENDER_FAILED error with a user-facing
// message. Known layout crashes get LayoutFailedMessage; anything else keeps
// its message verbatim. Errors that are already RENDER_FAILED pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errors.ErrCodeRender) {
		return err
	}
	msg := errors.UserMessage(err)
	for _, f := range layoutFailures {
		if strings.Contains(err.Error(), f) {
			msg = LayoutFailedMessage
			break
		}
	}
	return errors.Wrap(errors.ErrCodeRender, err, "%s", msg)
}
