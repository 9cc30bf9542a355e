// Package filter implements the Table Filter (C7): an include/exclude
// cascade over table names, generalized from the teacher's per-path
// FilterEngine cascade (internal/sync/filter.go).
package filter

import (
	"fmt"
	"log/slog"
	"regexp"
	"sync"
)

// Result mirrors the teacher's FilterResult shape.
type Result struct {
	Included bool
	Reason   string
}

// Config is the Table Filter's static configuration.
type Config struct {
	Exclude         []string // exact table names, always excluded
	ExcludePatterns []string // regexes; any match excludes
	Include         []string // exact table names
	IncludePatterns []string // regexes; any match includes

	// MinRowCount/MaxRowCount gate on table metadata when non-zero,
	// generalizing the teacher's max_file_size threshold.
	MinRowCount int64
	MaxRowCount int64
}

// TableFilter is the Table Filter contract (C7). Precedence, highest
// first: explicit excludes, exclude patterns, (empty includes accept
// everything), explicit includes, include patterns, otherwise reject.
type TableFilter struct {
	mu     sync.RWMutex
	cfg    Config
	logger *slog.Logger

	excludeRE []*regexp.Regexp
	includeRE []*regexp.Regexp
}

func New(cfg Config, logger *slog.Logger) (*TableFilter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f := &TableFilter{logger: logger}
	if err := f.setConfig(cfg); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *TableFilter) setConfig(cfg Config) error {
	excludeRE, err := compileAll(cfg.ExcludePatterns)
	if err != nil {
		return fmt.Errorf("filter: compiling exclude_patterns: %w", err)
	}
	includeRE, err := compileAll(cfg.IncludePatterns)
	if err != nil {
		return fmt.Errorf("filter: compiling include_patterns: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	f.excludeRE = excludeRE
	f.includeRE = includeRE
	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Accept evaluates the cascade for a single table name.
func (f *TableFilter) Accept(table string) Result {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, name := range f.cfg.Exclude {
		if name == table {
			f.logger.Debug("table excluded by exclude list", "table", table)
			return Result{Included: false, Reason: "explicit exclude"}
		}
	}
	for _, re := range f.excludeRE {
		if re.MatchString(table) {
			f.logger.Debug("table excluded by exclude pattern", "table", table, "pattern", re.String())
			return Result{Included: false, Reason: "matches exclude_patterns"}
		}
	}

	if len(f.cfg.Include) == 0 && len(f.cfg.IncludePatterns) == 0 {
		return Result{Included: true}
	}

	for _, name := range f.cfg.Include {
		if name == table {
			return Result{Included: true}
		}
	}
	for _, re := range f.includeRE {
		if re.MatchString(table) {
			return Result{Included: true}
		}
	}

	f.logger.Debug("table excluded: matches neither include list nor include patterns", "table", table)
	return Result{Included: false, Reason: "not in include list"}
}

// AcceptMetadata additionally gates on row-count thresholds.
func (f *TableFilter) AcceptMetadata(table string, rowCount int64) Result {
	if r := f.Accept(table); !r.Included {
		return r
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.cfg.MinRowCount > 0 && rowCount < f.cfg.MinRowCount {
		return Result{Included: false, Reason: "below min_row_count"}
	}
	if f.cfg.MaxRowCount > 0 && rowCount > f.cfg.MaxRowCount {
		return Result{Included: false, Reason: "exceeds max_row_count"}
	}
	return Result{Included: true}
}
