// Package catalog discovers the set of rateable item identifiers from an
// externally maintained document.
//
// The document is hierarchically nested with no fixed schema; its leaves are
// lists of item-identifying strings at arbitrary depth. The walk is therefore
// a generic tree visit over the untyped mapping/sequence union, independent
// of nesting shape or key names.
package catalog

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Source reads item identifiers from a catalog file. JSON and YAML documents
// are supported, selected by file extension.
type Source struct {
	path string
}

// Option applies a configuration option to the Source.
type Option func(*Source)

// New creates a Source for the catalog document at the given path.
func New(filePath string, opts ...Option) *Source {
	s := &Source{path: filePath}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Items loads the catalog and returns every item identifier found in it, in
// sorted order with duplicates removed. Identifiers are normalized to their
// path basename, matching how clients reference items. A missing or
// unparseable catalog is a configuration error: it must never silently
// produce an empty item set.
func (s *Source) Items(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, WrapLoad(s.path, err)
	}

	var doc any
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &doc)
	default:
		err = json.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, WrapParse(s.path, err)
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, 64)
	collectLeafStrings(doc, func(id string) {
		id = path.Base(id)
		if id == "" || id == "." || id == "/" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	})
	if len(ids) == 0 {
		return nil, NewEmpty(s.path)
	}

	sort.Strings(ids)
	return ids, nil
}

// collectLeafStrings walks a decoded JSON/YAML value and invokes visit for
// every string found inside a list. Nested maps and lists are descended into;
// scalar map values that are not part of a list are ignored, since item
// identifiers only ever appear as list entries.
func collectLeafStrings(node any, visit func(string)) {
	switch v := node.(type) {
	case map[string]any:
		for _, child := range v {
			collectLeafStrings(child, visit)
		}
	case []any:
		for _, child := range v {
			if s, ok := child.(string); ok {
				visit(s)
				continue
			}
			collectLeafStrings(child, visit)
		}
	}
}
