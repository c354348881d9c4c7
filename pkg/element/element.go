// Package element provides read-only, property-path-addressable access to
// the data records evaluated by stagegate.
//
// A property path is a dot-separated sequence of segments. Each segment may
// carry one or more bracket suffixes: a numeric suffix indexes into a
// sequence, any other suffix is treated as a map key. Resolution walks the
// record left to right; any absent intermediate segment yields "not found"
// rather than an error, so lookups are total.
package element

import (
	"strconv"
	"strings"
)

// Element is a read-only view over a tree-shaped record.
// Evaluation never mutates an Element.
type Element interface {
	// GetProperty resolves a property path against the record.
	// The second return value reports whether the path resolved; a resolved
	// path may still carry a nil value.
	GetProperty(path string) (any, bool)

	// HasProperty reports whether the path resolves.
	HasProperty(path string) bool

	// ToMap returns a shallow copy of the underlying record.
	ToMap() map[string]any
}

// MapElement wraps a plain map as an Element.
type MapElement struct {
	data map[string]any
}

// New creates an Element over the given map. A nil map behaves as an
// empty record.
func New(data map[string]any) *MapElement {
	if data == nil {
		data = map[string]any{}
	}
	return &MapElement{data: data}
}

// GetProperty resolves a dotted/bracketed property path.
func (e *MapElement) GetProperty(path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = e.data
	for _, segment := range splitPath(path) {
		key, indices := splitSegment(segment)

		if key != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			v, ok := m[key]
			if !ok {
				return nil, false
			}
			current = v
		}

		for _, idx := range indices {
			var ok bool
			current, ok = indexInto(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

// HasProperty reports whether the path resolves.
func (e *MapElement) HasProperty(path string) bool {
	_, ok := e.GetProperty(path)
	return ok
}

// ToMap returns a shallow copy of the underlying record.
func (e *MapElement) ToMap() map[string]any {
	out := make(map[string]any, len(e.data))
	for k, v := range e.data {
		out[k] = v
	}
	return out
}

// splitPath splits a property path on dots that sit outside brackets, so a
// bracketed key may itself contain a dot.
func splitPath(path string) []string {
	var segments []string
	var current strings.Builder
	depth := 0

	for _, r := range path {
		switch r {
		case '[':
			depth++
			current.WriteRune(r)
		case ']':
			if depth > 0 {
				depth--
			}
			current.WriteRune(r)
		case '.':
			if depth == 0 {
				segments = append(segments, current.String())
				current.Reset()
			} else {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}
	segments = append(segments, current.String())
	return segments
}

// splitSegment separates a segment into its leading key and any bracket
// suffixes. "items[0][name]" yields ("items", ["0", "name"]).
func splitSegment(segment string) (string, []string) {
	open := strings.IndexByte(segment, '[')
	if open < 0 {
		return segment, nil
	}

	key := segment[:open]
	var indices []string
	rest := segment[open:]
	for len(rest) > 0 && rest[0] == '[' {
		close := strings.IndexByte(rest, ']')
		if close < 0 {
			// Unterminated bracket: treat the remainder as a literal key.
			indices = append(indices, rest[1:])
			return key, indices
		}
		indices = append(indices, rest[1:close])
		rest = rest[close+1:]
	}
	return key, indices
}

// indexInto applies one bracket suffix: a numeric suffix indexes a sequence,
// anything else is a map key.
func indexInto(value any, idx string) (any, bool) {
	if n, err := strconv.Atoi(idx); err == nil {
		if seq, ok := value.([]any); ok {
			if n < 0 || n >= len(seq) {
				return nil, false
			}
			return seq[n], true
		}
	}
	if m, ok := value.(map[string]any); ok {
		v, ok := m[idx]
		return v, ok
	}
	return nil, false
}
