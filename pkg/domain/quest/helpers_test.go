package quest_test

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

func newTestCoordinator(opts ...quest.CoordinatorOption) *quest.Coordinator {
	opts = append([]quest.CoordinatorOption{
		quest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return quest.NewCoordinator(opts...)
}

func newLoggedCoordinator(opts ...quest.CoordinatorOption) (*quest.Coordinator, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]quest.CoordinatorOption{quest.WithLogger(logger)}, opts...)
	return quest.NewCoordinator(opts...), buf
}

func ids(objectives []*quest.Objective) []string {
	out := make([]string, len(objectives))
	for i, o := range objectives {
		out[i] = o.ID()
	}
	return out
}

// catalogOf builds a catalog that resolves the given objectives by id.
func catalogOf(objectives ...*quest.Objective) quest.Catalog {
	byID := make(map[string]*quest.Objective, len(objectives))
	for _, o := range objectives {
		byID[o.ID()] = o
	}
	return quest.CatalogFunc(func(id string) (*quest.Objective, bool) {
		o, ok := byID[id]
		return o, ok
	})
}
