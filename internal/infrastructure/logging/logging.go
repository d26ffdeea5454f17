// Package logging builds the slog loggers questctl hands to the coordinator.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configure New.
type Options struct {
	Level  Level
	Format Format
	// Categories lists the diagnostic categories to keep. Empty keeps all.
	Categories []string
}

// New returns a logger writing to w. Records tagged with a category not in
// opts.Categories are dropped; untagged records always pass.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	if !opts.Level.Valid() {
		return nil, fmt.Errorf("unknown log level %q", opts.Level)
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level.SlogLevel()}
	var h slog.Handler
	switch opts.Format {
	case "", FormatText:
		h = slog.NewTextHandler(w, handlerOpts)
	case FormatJSON:
		h = slog.NewJSONHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if len(opts.Categories) > 0 {
		filter, err := NewCategoryFilter(h, opts.Categories)
		if err != nil {
			return nil, err
		}
		h = filter
	}
	return slog.New(h), nil
}

// CategoryFilter drops records whose category attribute is not allowed.
type CategoryFilter struct {
	next     slog.Handler
	allowed  map[string]bool
	category string
}

// NewCategoryFilter wraps next. Every category must be a known
// quest.LogCategory.
func NewCategoryFilter(next slog.Handler, categories []string) (*CategoryFilter, error) {
	known := make(map[string]bool)
	for _, c := range quest.AllLogCategories() {
		known[string(c)] = true
	}

	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		if !known[c] {
			return nil, fmt.Errorf("unknown log category %q", c)
		}
		allowed[c] = true
	}
	return &CategoryFilter{next: next, allowed: allowed}, nil
}

func (f *CategoryFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return f.next.Enabled(ctx, level)
}

func (f *CategoryFilter) Handle(ctx context.Context, r slog.Record) error {
	category := f.category
	if category == "" {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == quest.CategoryKey {
				category = a.Value.String()
				return false
			}
			return true
		})
	}
	if category != "" && !f.allowed[category] {
		return nil
	}
	return f.next.Handle(ctx, r)
}

func (f *CategoryFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *f
	clone.next = f.next.WithAttrs(attrs)
	for _, a := range attrs {
		if a.Key == quest.CategoryKey {
			clone.category = a.Value.String()
		}
	}
	return &clone
}

func (f *CategoryFilter) WithGroup(name string) slog.Handler {
	clone := *f
	clone.next = f.next.WithGroup(name)
	return &clone
}
