package tree

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"next-nav-server/internal/filesystem"
	"next-nav-server/internal/logging"
	"next-nav-server/internal/metrics"
)

// Detector decides whether a source file is a client component.
type Detector interface {
	Scan(path string) (bool, error)
}

// Builder builds Trees. A Builder holds no per-build state and is safe for
// concurrent use.
type Builder struct {
	fs       filesystem.FileSystemAdapter
	detector Detector
	logger   *zap.Logger
}

// NewBuilder creates a Builder listing directories through fs and classifying
// files with d.
func NewBuilder(fs filesystem.FileSystemAdapter, d Detector) *Builder {
	return &Builder{fs: fs, detector: d, logger: logging.Named("tree")}
}

// Build walks rootDir depth first. rootDir is expected to be an existing,
// already validated directory. Any listing or scanning error aborts the whole
// build; a partial tree is never returned.
func (b *Builder) Build(rootDir string) (Tree, error) {
	start := time.Now()
	w := &walk{
		b: b,
		nodes: Tree{{
			ID:         0,
			FolderName: filepath.Base(rootDir),
			ParentNode: nil,
			Path:       rootDir,
			Contents:   []string{},
			Render:     RenderServer,
		}},
	}

	if err := w.listFiles(rootDir, 0); err != nil {
		metrics.RecordTreeBuild(time.Since(start), 0, false)
		b.logger.Error("tree build failed", zap.String("root", rootDir), zap.Error(err))
		return nil, fmt.Errorf("build tree for %s: %w", rootDir, err)
	}

	metrics.RecordTreeBuild(time.Since(start), len(w.nodes), true)
	b.logger.Info("tree built",
		zap.String("root", rootDir),
		zap.Int("directories", len(w.nodes)),
		zap.Int("client_directories", w.nodes.ClientCount()),
		zap.Duration("duration", time.Since(start)),
	)
	return w.nodes, nil
}

// walk is the state of one Build call.
type walk struct {
	b     *Builder
	nodes Tree
}

// listFiles adds the entries of dir to the tree. parent is the id of dir's node.
func (w *walk) listFiles(dir string, parent int) error {
	entries, err := w.b.fs.ListDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fullPath := filepath.Join(dir, entry.Name)

		if entry.IsDir {
			id := len(w.nodes)
			p := parent
			w.nodes = append(w.nodes, DirectoryNode{
				ID:         id,
				FolderName: entry.Name,
				ParentNode: &p,
				Path:       fullPath,
				Contents:   []string{},
				Render:     RenderServer,
			})
			w.b.logger.Debug("found directory", zap.String("path", fullPath), zap.Int("id", id))
			if err := w.listFiles(fullPath, id); err != nil {
				return err
			}
			continue
		}

		if !IsQualifying(entry.Name) {
			continue
		}

		w.nodes[parent].Contents = append(w.nodes[parent].Contents, entry.Name)
		client, err := w.b.detector.Scan(fullPath)
		if err != nil {
			return err
		}
		metrics.RecordFileScanned(client)
		if client {
			w.nodes[parent].Render = RenderClient
		}
	}
	return nil
}
