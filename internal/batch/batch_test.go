package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		n, size int
		want    []Chunk
	}{
		{0, 100, []Chunk{{0, 0}}},
		{1, 100, []Chunk{{0, 1}}},
		{99, 100, []Chunk{{0, 99}}},
		{100, 100, []Chunk{{0, 100}}},
		{250, 100, []Chunk{{0, 100}, {100, 250}}},
		{7, 3, []Chunk{{0, 3}, {3, 7}}},
		{5, 0, []Chunk{{0, 5}}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Partition(tt.n, tt.size), "n=%d size=%d", tt.n, tt.size)
	}
}

func TestPartitionCoversEveryInstanceOnce(t *testing.T) {
	for n := 0; n < 40; n++ {
		for size := 1; size < 12; size++ {
			seen := make([]int, n)
			for _, c := range Partition(n, size) {
				for i := c.Start; i < c.Stop; i++ {
					seen[i]++
				}
			}
			for i, s := range seen {
				require.Equal(t, 1, s, "n=%d size=%d instance %d", n, size, i)
			}
		}
	}
}

func TestRunVisitsAll(t *testing.T) {
	out := make([]int, 1000)
	var calls atomic.Int64
	err := Run(context.Background(), Partition(len(out), 37), 4, func(i int) error {
		calls.Add(1)
		out[i] = i * 2
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1000, calls.Load())
	for i, v := range out {
		assert.Equal(t, i*2, v)
	}
}

func TestRunStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), Partition(500, 10), 2, func(i int) error {
		if i == 42 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, Partition(10, 5), 1, func(int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
