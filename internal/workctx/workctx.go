// Package workctx implements the scoped working-directory acquisition
// described in spec.md §3/§9: a resource (here, a temp directory) acquired
// at Job start and released on every exit path, success or failure.
// Grounded on the teacher's internal/home.Dir (root path + subdirectory
// accessors + EnsureExists), generalised to a per-Job, random, removable
// scratch tree instead of a fixed user home directory.
package workctx

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/ocrforge/pdfsandwich/internal/config"
)

// WorkContext owns every intermediate artifact a Job produces. It is
// created once per Job and torn down exactly once, regardless of outcome.
type WorkContext struct {
	root    string
	opts    *config.Options
	logger  *slog.Logger
	keep    bool
	mu      sync.Mutex
	removed bool
}

// New creates a job-unique directory under the OS temp root, named with a
// short uuid prefix so concurrent Jobs on the same host never collide
// (§6: "working directory is created under the OS temp root with a
// job-unique prefix").
func New(opts *config.Options, logger *slog.Logger) (*WorkContext, error) {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := fmt.Sprintf("pdfsandwich-%s", uuid.NewString()[:8])
	root, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	wc := &WorkContext{
		root:   root,
		opts:   opts,
		logger: logger.With("workdir", root),
		keep:   opts.KeepTemporaryFiles,
	}
	return wc, nil
}

// Root returns the working directory's path.
func (w *WorkContext) Root() string { return w.root }

// Logger returns the logger scoped to this WorkContext.
func (w *WorkContext) Logger() *slog.Logger { return w.logger }

// Options returns the frozen job options.
func (w *WorkContext) Options() *config.Options { return w.opts }

// PagePath returns the path for a named artifact of a given page, using
// the six-digit prefix scheme from §3 that is the sole ordering channel
// between workers and the Assembler.
func (w *WorkContext) PagePath(pageNo int, suffix string) string {
	return filepath.Join(w.root, fmt.Sprintf("%06d.%s", pageNo, suffix))
}

// Mkdir creates a named subdirectory under the working directory.
func (w *WorkContext) Mkdir(name string) (string, error) {
	dir := filepath.Join(w.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// Close removes the working directory unless KeepTemporaryFiles was set,
// in which case it only logs the retained path. Safe to call multiple
// times and from a deferred call on every exit path.
func (w *WorkContext) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.removed {
		return nil
	}
	w.removed = true

	if w.keep {
		w.logger.Info("keeping temporary files", "path", w.root)
		return nil
	}
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("failed to remove working directory %s: %w", w.root, err)
	}
	return nil
}
