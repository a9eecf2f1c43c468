package repro

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
)

// entryTask is one entry queued for transformation, tagged with its
// position in the canonical order.
type entryTask struct {
	index int
	file  *zip.File
}

// indexedResult carries a transformed entry back to the writer.
type indexedResult struct {
	index int
	res   entryResult
}

// transformWorkers decides how many workers transform entries. Entries
// without a sub-stripper are cheap header rewrites, so automatic mode
// only parallelizes when at least two entries need content stripping.
func (s *ZipStripper) transformWorkers(files []*zip.File) int {
	if len(files) < 2 || s.workers < 0 {
		return 1
	}

	workers := s.workers
	if workers == 0 {
		matched := 0
		for _, f := range files {
			if firstMatch(s.subs, f.Name) != nil {
				matched++
			}
		}
		if matched < 2 {
			return 1
		}
		workers = runtime.GOMAXPROCS(0)
	}

	if workers > len(files) {
		workers = len(files)
	}
	if workers < 2 {
		return 1
	}
	return workers
}

// writePipelined transforms entries on a worker pool while a single
// goroutine writes results strictly in canonical order. Results that
// finish early are parked in a pending map until their turn comes, so
// the output bytes are identical to the serial path.
func (s *ZipStripper) writePipelined(zw *zip.Writer, files []*zip.File, fixAttrs bool, workers int) error {
	taskCh := make(chan entryTask)
	readyCh := make(chan indexedResult, workers)
	eg, ctx := errgroup.WithContext(context.Background())

	var workerWg sync.WaitGroup
	workerWg.Add(workers)

	for range workers {
		eg.Go(func() error {
			defer workerWg.Done()
			for task := range taskCh {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := s.transformEntry(task.file, fixAttrs)
				if err != nil {
					return err
				}
				select {
				case readyCh <- indexedResult{index: task.index, res: res}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	eg.Go(func() error {
		defer close(taskCh)
		for i, f := range files {
			select {
			case taskCh <- entryTask{index: i, file: f}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	go func() {
		workerWg.Wait()
		close(readyCh)
	}()

	eg.Go(func() error {
		next := 0
		pending := make(map[int]entryResult, workers)
		for next < len(files) {
			select {
			case r, ok := <-readyCh:
				if !ok {
					if err := ctx.Err(); err != nil {
						return err
					}
					return errors.New("transform pipeline ended unexpectedly")
				}
				pending[r.index] = r.res
				for {
					res, ok := pending[next]
					if !ok {
						break
					}
					delete(pending, next)
					if err := writeEntry(zw, res); err != nil {
						return err
					}
					next++
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return eg.Wait()
}
