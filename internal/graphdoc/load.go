package graphdoc

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/fsutil"
	"github.com/specialistvlad/gridflow/internal/model"
)

// LoadFile reads and decodes one graph file.
func LoadFile(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding graph file.", "path", path)

	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	d, err := Decode(src, format, path)
	if err != nil {
		return nil, err
	}

	logger.Debug("Successfully decoded graph file.", "path", path, "nodes", len(d.Nodes), "edges", len(d.Edges))
	return d, nil
}

// LoadPath loads a single graph file, or every graph file found below a
// directory, and merges them into one graph.
func LoadPath(ctx context.Context, path string) (*model.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.ResolvePath(path, Extensions...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve graph path '%s': %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no graph files found in %s", path)
	}
	logger.Info("Found graph files to process.", "count", len(files), "path", path)

	docs := make([]*Document, 0, len(files))
	for _, f := range files {
		d, err := LoadFile(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("failed to load graph file '%s': %w", f, err)
		}
		docs = append(docs, d)
	}

	g, err := Merge(docs...).Graph()
	if err != nil {
		return nil, err
	}
	logger.Debug("Finished loading graph.", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return g, nil
}
