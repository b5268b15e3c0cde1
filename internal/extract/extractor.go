// Package extract turns raw text into a MetricsRecord.
//
// Each extractor computes one group of metrics from a shared Document and
// returns it as a partial record (a fragment). A Pipeline runs the enabled
// extractors concurrently and merges their fragments.
package extract

import (
	"context"
	"fmt"
	"sort"

	"github.com/tonetrace/tonetrace/internal/analytics"
)

// Extractor computes a fragment of a MetricsRecord. A nil fragment means the
// extractor had nothing to report; fields it leaves nil stay absent.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, doc *Document) (*analytics.MetricsRecord, error)
}

// Func adapts a plain function to Extractor.
type Func struct {
	name string
	fn   func(doc *Document) *analytics.MetricsRecord
}

// NewFunc creates an Extractor from fn
func NewFunc(name string, fn func(doc *Document) *analytics.MetricsRecord) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Extract(ctx context.Context, doc *Document) (*analytics.MetricsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Empty() {
		return nil, nil
	}
	return f.fn(doc), nil
}

// Registry holds available extractors
var registry = make(map[string]Extractor)

// Register adds an extractor to the registry, replacing one with the same name
func Register(e Extractor) {
	registry[e.Name()] = e
}

// Get returns an extractor by name
func Get(name string) (Extractor, error) {
	if e, ok := registry[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("unknown extractor: %s", name)
}

// Names returns the registered extractor names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
