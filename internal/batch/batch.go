// Package batch splits independent instances into contiguous chunks and
// processes the chunks on a bounded worker pool.
package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the nominal number of instances per chunk.
const DefaultChunkSize = 100

// Chunk is the half-open instance range [Start, Stop).
type Chunk struct {
	Start, Stop int
}

// Len returns the number of instances in the chunk.
func (c Chunk) Len() int { return c.Stop - c.Start }

// Partition divides n instances into max(1, n/size) contiguous chunks of
// size instances each; the last chunk absorbs the remainder.
func Partition(n, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	count := max(n/size, 1)
	chunks := make([]Chunk, count)
	for i := range chunks {
		chunks[i] = Chunk{Start: i * size, Stop: (i + 1) * size}
	}
	chunks[count-1].Stop = n
	if chunks[count-1].Start > n {
		chunks[count-1].Start = n
	}
	return chunks
}

// Func processes instance i. It must only touch state owned by instance i.
type Func func(i int) error

// Run processes every instance of every chunk with at most workers chunks in
// flight. Instances inside a chunk run sequentially. The first error stops
// the remaining chunks and is returned.
func Run(ctx context.Context, chunks []Chunk, workers int, fn Func) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for id, c := range chunks {
		id, c := id, c
		g.Go(func() error {
			start := time.Now()
			for i := c.Start; i < c.Stop; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(i); err != nil {
					return err
				}
			}
			slog.Debug("Chunk done", "chunk", id, "start", c.Start, "stop", c.Stop, "duration", time.Since(start))
			return nil
		})
	}
	return g.Wait()
}
