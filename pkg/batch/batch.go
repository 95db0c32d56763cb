// Package batch converts every candidate script under a set of paths with a
// bounded pool of workers.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/vuesetup/pkg/convert"
	"github.com/Sumatoshi-tech/vuesetup/pkg/textutil"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

// ErrNoInput is returned when no path is given.
var ErrNoInput = errors.New("no input paths")

const durationPrecision = time.Millisecond

// Options control a batch run.
type Options struct {
	// Include and Exclude are glob patterns matched against base names.
	Include []string
	Exclude []string
	// MaxFileSize skips larger files. Zero disables the limit.
	MaxFileSize int64
	// Workers bounds concurrent conversions. Zero means one per CPU.
	Workers int
	// Write replaces converted files in place.
	Write bool
}

// Status is the outcome for one file.
type Status uint8

// File statuses.
const (
	StatusUnchanged Status = iota
	StatusConverted
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusConverted:
		return "converted"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}

	return fmt.Sprintf("status(%d)", s)
}

// FileResult is the outcome for one file.
type FileResult struct {
	Err        error
	Path       string
	Reason     string
	Ignored    []string
	Size       int64
	Components int
	Lines      int
	Changed    int
	Status     Status
}

// Summary collects the results of one run in input order.
type Summary struct {
	Files    []FileResult
	Duration time.Duration
}

// Count returns the number of files with status s.
func (s *Summary) Count(status Status) int {
	n := 0

	for _, f := range s.Files {
		if f.Status == status {
			n++
		}
	}

	return n
}

// Err joins the errors of failed files.
func (s *Summary) Err() error {
	var errs []error

	for _, f := range s.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
		}
	}

	return errors.Join(errs...)
}

// Collect expands paths into the sorted list of candidate files. Explicit
// file arguments are kept even when they do not match the include globs.
func Collect(paths []string, opts Options) ([]string, error) {
	if len(paths) == 0 {
		return nil, ErrNoInput
	}

	seen := make(map[string]bool)

	var files []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true

			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}

		if !info.IsDir() {
			add(filepath.Clean(root))

			continue
		}

		walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return relErr
			}

			if d.IsDir() {
				if rel != "." && skipDir(filepath.ToSlash(rel), opts) {
					return filepath.SkipDir
				}

				return nil
			}

			if tsast.IsCandidate(filepath.ToSlash(rel)) && selected(opts, d.Name()) {
				add(p)
			}

			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("walk %s: %w", root, walkErr)
		}
	}

	slices.Sort(files)

	return files, nil
}

// skipDir reports vendored, hidden and excluded directories.
func skipDir(rel string, opts Options) bool {
	return enry.IsVendor(rel+"/") || enry.IsDotFile(rel) || matchAny(opts.Exclude, path.Base(rel))
}

func selected(opts Options, name string) bool {
	if matchAny(opts.Exclude, name) {
		return false
	}

	return len(opts.Include) == 0 || matchAny(opts.Include, name)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}

	return false
}

// Runner converts files concurrently with one converter.
type Runner struct {
	Converter *convert.Converter
	Logger    *slog.Logger
	Options   Options
}

// Run converts every file and returns their results in input order. It
// only fails when ctx is cancelled; per-file errors are in the summary.
func (r *Runner) Run(ctx context.Context, files []string) (*Summary, error) {
	start := time.Now()

	workers := r.Options.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]FileResult, len(files))
	sem := make(chan struct{}, workers)
	wg := sync.WaitGroup{}

	for i, file := range files {
		if ctx.Err() != nil {
			wg.Wait()

			return nil, fmt.Errorf("batch: %w", ctx.Err())
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()

			return nil, fmt.Errorf("batch: %w", ctx.Err())
		}

		wg.Add(1)

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = r.convertFile(ctx, file)

			if results[i].Err != nil {
				logger.WarnContext(ctx, "batch conversion failed", "file", file, "error", results[i].Err)
			}
		}()
	}

	wg.Wait()

	return &Summary{Files: results, Duration: time.Since(start)}, nil
}

func (r *Runner) convertFile(ctx context.Context, file string) FileResult {
	out := FileResult{Path: file}

	info, err := os.Stat(file)
	if err != nil {
		out.Status, out.Err = StatusFailed, err

		return out
	}

	out.Size = info.Size()

	if r.Options.MaxFileSize > 0 && info.Size() > r.Options.MaxFileSize {
		out.Status, out.Reason = StatusSkipped, "too large"

		return out
	}

	src, err := os.ReadFile(file)
	if err != nil {
		out.Status, out.Err = StatusFailed, err

		return out
	}

	if !textutil.IsText(src) {
		out.Status, out.Reason = StatusSkipped, "not text"

		return out
	}

	out.Lines = textutil.CountLines(src)

	res, err := r.Converter.Convert(ctx, file, src)
	if err != nil {
		out.Status, out.Err = StatusFailed, err

		return out
	}

	out.Components = len(res.Components)
	for _, comp := range res.Components {
		out.Ignored = append(out.Ignored, comp.Ignored...)
	}

	if !res.Changed {
		out.Status = StatusUnchanged

		return out
	}

	out.Status = StatusConverted
	out.Changed = textutil.ChangedLines(src, []byte(res.Code))

	if r.Options.Write {
		if werr := os.WriteFile(file, []byte(res.Code), info.Mode().Perm()); werr != nil {
			out.Status, out.Err = StatusFailed, fmt.Errorf("write: %w", werr)
		}
	}

	return out
}
