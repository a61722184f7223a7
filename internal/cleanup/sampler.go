package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/aatumaykin/docsweep/internal/logger"
	"github.com/aatumaykin/docsweep/internal/workers"
)

// Sampler walks category directories and measures their footprint.
// Directories are walked recursively; only regular files are counted.
type Sampler struct {
	pool   *workers.WorkerPool
	logger *logger.Logger
}

// NewSampler creates a sampler. With a nil pool categories are walked sequentially.
func NewSampler(pool *workers.WorkerPool, log *logger.Logger) *Sampler {
	if log == nil {
		log = logger.Nop()
	}
	return &Sampler{pool: pool, logger: log}
}

type categoryScan struct {
	records []FileRecord
	usage   CategoryUsage
}

// Sample returns the aggregate usage of cats.
func (s *Sampler) Sample(ctx context.Context, cats []Category) (Usage, error) {
	_, usage, err := s.Scan(ctx, cats)
	return usage, err
}

// Scan lists every regular file below cats and returns the records with the usage totals.
// Missing directories contribute nothing; files vanishing during the walk are skipped.
func (s *Sampler) Scan(ctx context.Context, cats []Category) ([]FileRecord, Usage, error) {
	scans := make([]categoryScan, len(cats))

	if s.pool == nil {
		for i, c := range cats {
			sc, err := s.scanCategory(ctx, c)
			if err != nil {
				return nil, Usage{}, err
			}
			scans[i] = sc
		}
	} else {
		tasks := make([]workers.Task, len(cats))
		for i, c := range cats {
			cat := c
			tasks[i] = workers.Task{
				ID:      "scan:" + cat.Name,
				Type:    "scan",
				Context: ctx,
				Exec: func(ctx context.Context) (any, error) {
					return s.scanCategory(ctx, cat)
				},
			}
		}

		for i, r := range s.pool.Run(ctx, tasks) {
			switch {
			case errors.Is(r.Error, workers.ErrPoolStopped):
				// Pool is shutting down, finish inline.
				sc, err := s.scanCategory(ctx, cats[i])
				if err != nil {
					return nil, Usage{}, err
				}
				scans[i] = sc
			case r.Error != nil:
				return nil, Usage{}, fmt.Errorf("scan %s: %w", cats[i].Name, r.Error)
			default:
				scans[i] = r.Output.(categoryScan)
			}
		}
	}

	usage := Usage{Categories: make(map[string]CategoryUsage, len(cats))}
	var records []FileRecord
	for i, sc := range scans {
		usage.Categories[cats[i].Name] = sc.usage
		usage.TotalBytes += sc.usage.Bytes
		usage.TotalFiles += sc.usage.Files
		records = append(records, sc.records...)
	}
	return records, usage, nil
}

func (s *Sampler) scanCategory(ctx context.Context, cat Category) (categoryScan, error) {
	var sc categoryScan

	err := filepath.WalkDir(cat.Dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if path == cat.Dir {
					return fs.SkipAll
				}
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			s.logger.Warn("skipping unreadable path",
				logger.Field{Key: "category", Value: cat.Name},
				logger.Field{Key: "path", Value: path},
				logger.Field{Key: "error", Value: err.Error()})
			if path == cat.Dir {
				return fs.SkipAll
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// Removed between listing and stat.
			return nil
		}

		sc.records = append(sc.records, FileRecord{
			Path:     path,
			Category: cat.Name,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
		sc.usage.Bytes += info.Size()
		sc.usage.Files++
		return nil
	})
	if err != nil {
		return categoryScan{}, err
	}
	return sc, nil
}
