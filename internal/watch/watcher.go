package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/descvis/internal/diff"
)

// RunFunc is called each time the watcher triggers a re-evaluation.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunResult holds the output of a single evaluation so the watcher can
// report how the visible set changed.
type RunResult struct {
	// Total is the number of candidate descriptors.
	Total int
	// Visible are the ids of the visible descriptors, in order.
	Visible []string
	// OutputPath is where the report was written, if anywhere.
	OutputPath string
}

// Options configures the watch behaviour.
type Options struct {
	// Paths are the catalog and rules files to watch. Directories are
	// watched recursively.
	Paths []string

	// Debounce is the quiet period before triggering a re-evaluation.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 500 * time.Millisecond,
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// targets records what is being watched. Single files are watched through
// their parent directory so that editors replacing the file by rename keep
// being observed.
type targets struct {
	roots []string
	files map[string]bool
}

func (t *targets) covers(path string) bool {
	if t.files[path] {
		return true
	}

	for _, root := range t.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

// session serializes runs and remembers the previous visible set.
type session struct {
	mu    sync.Mutex
	opts  Options
	run   RunFunc
	prev  []string
	ready bool
}

// Run starts the file watcher and blocks until the context is cancelled
// or a SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if len(opts.Paths) == 0 {
		return fmt.Errorf("no paths to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	tg, err := addTargets(watcher, opts.Paths)
	if err != nil {
		return err
	}

	// Trap SIGINT / SIGTERM for graceful shutdown.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", strings.Join(opts.Paths, ", "), opts.Debounce)

	s := &session{opts: opts, run: runFn}

	// Initial evaluation.
	s.do(sigCtx, "(initial)")

	debouncer := NewDebouncer(opts.Debounce, opts.Logger, func(path string) {
		s.do(sigCtx, path)
	})
	defer debouncer.Stop()

	for {
		select {
		case <-sigCtx.Done():
			_, _ = fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event) || !tg.covers(event.Name) {
				continue
			}

			// If a new directory was created under a watched root, watch it too.
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name)
				}
			}

			opts.Logger.Debug("change detected", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// do executes a single evaluation and prints the status line.
func (s *session) do(ctx context.Context, trigger string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Format("15:04:05")
	out := s.opts.Out

	result, err := s.run(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(out, "[%s] %s → ERROR: %v\n", now, trigger, err)
		return
	}

	_, _ = fmt.Fprintf(out, "[%s] %s → OK (%d of %d visible)\n", now, trigger, len(result.Visible), result.Total)

	if s.ready {
		change := diff.Compare(s.prev, result.Visible)
		if !change.Empty() {
			_, _ = fmt.Fprintf(out, "  visible: %s\n", change)

			for _, id := range change.Added {
				_, _ = fmt.Fprintf(out, "    + %s\n", id)
			}

			for _, id := range change.Removed {
				_, _ = fmt.Fprintf(out, "    - %s\n", id)
			}
		}
	}

	if result.OutputPath != "" {
		_, _ = fmt.Fprintf(out, "  wrote %s\n", result.OutputPath)
	}

	s.prev = append([]string(nil), result.Visible...)
	s.ready = true
}

// addTargets watches every path: directories recursively, files through
// their parent directory.
func addTargets(watcher *fsnotify.Watcher, paths []string) (*targets, error) {
	tg := &targets{files: make(map[string]bool)}
	dirs := make(map[string]bool)

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", p, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("watching %q: %w", p, err)
		}

		if info.IsDir() {
			if err := addRecursive(watcher, abs); err != nil {
				return nil, fmt.Errorf("watching directory %q: %w", p, err)
			}

			tg.roots = append(tg.roots, abs)

			continue
		}

		tg.files[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}

		if err := watcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching %q: %w", dir, err)
		}

		dirs[dir] = true
	}

	return tg, nil
}

// addRecursive walks root and adds all directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories (e.g., .git).
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}

			return watcher.Add(path)
		}

		return nil
	})
}

// isRelevant filters out events that cannot change a catalog or rules file.
func isRelevant(event fsnotify.Event) bool {
	if event.Op == 0 {
		return false
	}

	// Only care about write, create, remove, rename.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Base(event.Name)

	// Ignore editor temporary files and hidden files.
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#") {
		return false
	}

	return true
}
