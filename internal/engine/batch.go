package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchItem pairs one input path with its conversion outcome. A failed
// file records its error without aborting the rest of the batch.
type BatchItem struct {
	Path   string
	Result *ConvertResult
	Err    error
}

// ConvertFiles converts scenario files concurrently, at most
// concurrency at a time (unlimited when <= 0). Results keep the input
// order. Only context cancellation fails the batch as a whole.
func (e *Engine) ConvertFiles(ctx context.Context, paths []string, concurrency int) ([]BatchItem, error) {
	items := make([]BatchItem, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.ConvertFile(ctx, path)
			items[i] = BatchItem{Path: path, Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
