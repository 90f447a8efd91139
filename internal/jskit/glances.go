package jskit

import (
	"fmt"
	"maps"
	"slices"

	"github.com/joeycumines/jskit/internal/blobdb"
)

// BuildGlanceSlices converts script-supplied app glance slices, as exported
// from JS, into record store slices. Each element with a layout becomes an
// icon-subtitle slice carrying a timestamp (from expirationTime) followed by
// the layout fields in key order. Other elements are skipped.
func BuildGlanceSlices(input []any) ([]blobdb.Slice, error) {
	out := make([]blobdb.Slice, 0, len(input))
	for i, item := range input {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		raw, ok := obj["layout"]
		if !ok {
			continue
		}
		layout, _ := raw.(map[string]any)

		attrs := make([]blobdb.Attribute, 0, len(layout)+1)
		ts, err := blobdb.ParseAttribute("timestamp", obj["expirationTime"])
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		attrs = append(attrs, ts)
		for _, key := range slices.Sorted(maps.Keys(layout)) {
			attr, err := blobdb.ParseAttribute(key, layout[key])
			if err != nil {
				return nil, fmt.Errorf("slice %d: %w", i, err)
			}
			attrs = append(attrs, attr)
		}
		out = append(out, blobdb.Slice{Type: blobdb.SliceTypeIconSubtitle, Attributes: attrs})
	}
	return out, nil
}
