package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/metascan/internal/mediatime"
	"github.com/MeKo-Tech/metascan/internal/metadata"
)

// ParallelConfig holds configuration for parallel file scans.
type ParallelConfig struct {
	MaxWorkers       int                      // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback         // Optional progress reporting
	ErrorHandler     func(int, string, error) // Optional per-file error handler
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// FileResult is the outcome of scanning one file.
type FileResult struct {
	Path    string
	Width   int
	Height  int
	Objects []metadata.Object
	Err     error
}

type fileJob struct {
	index int
	path  string
}

type fileOutcome struct {
	index int
	res   FileResult
}

// ScanFiles loads and scans every path using a worker pool. Results are in
// input order; per-file failures are reported in FileResult.Err and the
// first one is also returned.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string, config ParallelConfig) ([]FileResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files provided")
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	config.MaxWorkers = min(config.MaxWorkers, len(paths))

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(paths))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan fileJob, len(paths))
	results := make(chan fileOutcome, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < config.MaxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- fileOutcome{index: job.index, res: s.scanFile(ctx, job.path)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, p := range paths {
			select {
			case jobs <- fileJob{index: i, path: p}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]FileResult, len(paths))
	processed := 0
	for out := range results {
		res := out.res
		ordered[out.index] = res
		processed++
		if res.Err != nil && config.ProgressCallback != nil {
			config.ProgressCallback.OnError(processed, res.Err)
		}
		if config.ProgressCallback != nil {
			config.ProgressCallback.OnProgress(processed, len(paths))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstError error
	for i, res := range ordered {
		if res.Err == nil {
			continue
		}
		if firstError == nil {
			firstError = fmt.Errorf("%s: %w", paths[i], res.Err)
		}
		if config.ErrorHandler != nil {
			config.ErrorHandler(i, paths[i], res.Err)
		}
	}
	return ordered, firstError
}

func (s *Scanner) scanFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}
	img, meta, err := LoadImage(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Width, res.Height = meta.Width, meta.Height
	res.Objects, res.Err = s.ScanImage(ctx, img, StillFrame(img))
	return res
}

// StillFrame describes a single still picture: time zero, no duration.
func StillFrame(img image.Image) metadata.FrameInfo {
	b := img.Bounds()
	return metadata.FrameInfo{Time: mediatime.Zero, Duration: mediatime.Invalid, Width: b.Dx(), Height: b.Dy()}
}
