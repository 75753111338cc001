package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/haivivi/topograph/pkg/cli"
	"github.com/haivivi/topograph/pkg/graph"
	"github.com/haivivi/topograph/pkg/kv"
	"github.com/haivivi/topograph/pkg/match"
	"github.com/haivivi/topograph/pkg/storage"
	"github.com/haivivi/topograph/pkg/template"
)

// loadGraph reads a graph document. An empty path falls back to the
// context's graph.
func loadGraph(path string, c *cli.Context) (*graph.Graph, error) {
	if path == "" {
		path = c.Graph
	}
	if path == "" {
		return nil, fmt.Errorf("no graph given; use -g or set one on the context")
	}
	var doc graph.Document
	if err := cli.LoadRequest(path, &doc); err != nil {
		return nil, fmt.Errorf("load graph %s: %w", path, err)
	}
	g, err := graph.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", path, err)
	}
	slog.Debug("graph loaded", "path", path, "vertices", g.NumVertices(), "edges", g.NumEdges())
	return g, nil
}

// openTemplates loads templates from src: a bundle when src is an S3
// location or a directory with a manifest, otherwise a plain directory of
// definition files.
func openTemplates(ctx context.Context, src string, c *cli.Context) (*template.Library, error) {
	if !strings.HasPrefix(src, "s3://") {
		if _, err := os.Stat(filepath.Join(src, template.ManifestFile)); errors.Is(err, os.ErrNotExist) {
			return template.LoadDir(src)
		}
	}
	fs, err := storage.Open(src, c.S3Options())
	if err != nil {
		return nil, err
	}
	return template.LoadBundle(ctx, fs)
}

// loadLibrary resolves the template library: src, else the context's
// template source, else the local template cache.
func loadLibrary(ctx context.Context, src string, c *cli.Context) (*template.Library, error) {
	if src == "" {
		src = c.Templates
	}
	if src != "" {
		return openTemplates(ctx, src, c)
	}
	store, closeStore, err := openStore(c)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return store.Library(ctx)
}

// openStore opens the badger-backed template cache of the context.
func openStore(c *cli.Context) (*template.Store, func(), error) {
	dir := c.StoreDir
	if dir == "" {
		p, err := cli.NewPaths()
		if err != nil {
			return nil, nil, err
		}
		if dir, err = p.EnsureStoreDir(c.Name); err != nil {
			return nil, nil, err
		}
	}
	db, err := kv.NewBadger(kv.BadgerOptions{Dir: dir, Logger: slog.Default()})
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := db.Close(); err != nil {
			slog.Warn("close template cache", "dir", dir, "error", err)
		}
	}
	return template.NewStore(db, ""), closeStore, nil
}

// newMatcher builds a matcher. A positive maxSteps overrides the context.
func newMatcher(maxSteps int, c *cli.Context) *match.Matcher {
	opts := []match.Option{match.WithLogger(slog.Default())}
	if maxSteps == 0 {
		maxSteps = c.MaxSteps
	}
	if maxSteps != 0 {
		opts = append(opts, match.WithMaxSteps(maxSteps))
	}
	return match.New(opts...)
}

// parseSeeds turns "tid=eid" pairs into mappings.
func parseSeeds(vertices, edges []string) ([]match.Mapping, error) {
	var seeds []match.Mapping
	for _, group := range []struct {
		pairs []string
		mk    func(tid, eid string) match.Mapping
	}{
		{vertices, match.VertexSeed},
		{edges, match.EdgeSeed},
	} {
		for _, s := range group.pairs {
			tid, eid, ok := strings.Cut(s, "=")
			if !ok || tid == "" || eid == "" {
				return nil, fmt.Errorf("invalid seed %q, want template_id=entity_id", s)
			}
			seeds = append(seeds, group.mk(tid, eid))
		}
	}
	return seeds, nil
}
