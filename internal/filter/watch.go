package filter

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a TableFilter's include list from an external
// pattern file whenever it changes on disk, generalizing the
// teacher's per-directory .odignore cache (internal/sync/filter.go)
// from a poll-on-every-call cache to a push-based reload driven by
// fsnotify, so the hot path never re-stats the pattern file.
//
// The pattern file holds one table name or /regex/ pattern per line;
// lines starting with "#" are comments.
type Watcher struct {
	path   string
	filter *TableFilter
	logger *slog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching path and performs an initial load.
func NewWatcher(path string, filter *TableFilter, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{path: path, filter: filter, logger: logger, done: make(chan struct{})}
	if err := w.reload(); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filter: creating watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("filter: watching %s: %w", path, err)
	}
	w.watcher = fw

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.reload(); err != nil {
				w.logger.Warn("reloading table filter pattern file failed", "path", w.path, "error", err)
			} else {
				w.logger.Info("reloaded table filter pattern file", "path", w.path)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("table filter watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() error {
	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("filter: opening pattern file: %w", err)
	}
	defer f.Close()

	var names, patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "/") && strings.HasSuffix(line, "/") && len(line) > 1 {
			patterns = append(patterns, line[1:len(line)-1])
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("filter: reading pattern file: %w", err)
	}

	cfg := w.filter.cfg
	cfg.Include = names
	cfg.IncludePatterns = patterns
	return w.filter.setConfig(cfg)
}

// Stop releases the underlying fsnotify watch.
func (w *Watcher) Stop() error {
	close(w.done)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
