package elements

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/matzehuels/diagramsync/pkg/errors"
)

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```\\s*$")

// Parse decodes a shape list. It accepts a top-level JSON array, or an
// object with an "elements" or "shapes" array, optionally wrapped in a
// markdown code fence. Array items that are not objects are skipped. Any
// other input is an INVALID_SCHEMA error.
func Parse(data []byte) ([]map[string]any, error) {
	data = bytes.TrimSpace(data)
	if m := fenceRe.FindSubmatch(data); m != nil {
		data = bytes.TrimSpace(m[1])
	}
	if len(data) == 0 {
		return nil, errors.Schema(fmt.Errorf("empty input"))
	}

	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.Schema(err)
	}

	var list []any
	switch v := top.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range []string{"elements", "shapes"} {
			if arr, ok := v[key].([]any); ok {
				list = arr
				break
			}
		}
		if list == nil {
			return nil, errors.Schema(fmt.Errorf("expected an array of shapes, got an object"))
		}
	default:
		return nil, errors.Schema(fmt.Errorf("expected an array of shapes, got %T", top))
	}

	items := make([]map[string]any, 0, len(list))
	for _, it := range list {
		if obj, ok := it.(map[string]any); ok {
			items = append(items, obj)
		}
	}
	return items, nil
}
