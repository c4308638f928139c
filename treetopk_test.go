package treetopk

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyhackingspace/treetopk/inference"
	"github.com/happyhackingspace/treetopk/tree"
)

func pathProblem() Problem {
	return Problem{
		Gradient:   []float64{1, 1, 1, 1, 1, 1, 1, 1},
		K:          2,
		Edges:      [][2]int{{0, 1}, {1, 2}},
		NodeDegree: []int{1, 2, 1},
	}
}

// randomProblem builds mm instances on a random tree of n nodes.
func randomProblem(rng *rand.Rand, n, mm, k int) Problem {
	p := Problem{K: k, NodeDegree: make([]int, n)}
	for v := 1; v < n; v++ {
		u := rng.Intn(v)
		p.Edges = append(p.Edges, [2]int{u, v})
		p.NodeDegree[u]++
		p.NodeDegree[v]++
	}
	p.Gradient = make([]float64, mm*4*(n-1))
	for i := range p.Gradient {
		p.Gradient[i] = rng.NormFloat64() * 3
	}
	return p
}

func TestComputePathTies(t *testing.T) {
	res, err := Compute(context.Background(), pathProblem())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Instances())
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 1}, res.Ymax.Row(0))
	assert.InDelta(t, 2.0, res.YmaxVal.At(0, 0), 1e-9)
	assert.InDelta(t, res.YmaxVal.At(0, 0), res.YmaxVal.At(0, 1), 1e-12)
	assert.Equal(t, []int{2}, res.Found)
}

func TestComputeSingleEdge(t *testing.T) {
	p := Problem{
		Gradient:   []float64{-1, 0.5, 6, -3},
		K:          1,
		Edges:      [][2]int{{0, 1}},
		NodeDegree: []int{1, 1},
	}
	res, err := Compute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, res.Assignment(0, 0))
	assert.InDelta(t, 6.0, res.YmaxVal.At(0, 0), 1e-9)
}

func TestComputeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := randomProblem(rng, 9, 230, 5)
	res, err := New(Config{ChunkSize: 40, Workers: 4}).Compute(context.Background(), p)
	require.NoError(t, err)

	tr, err := tree.NewTree(p.Edges, p.NodeDegree, 0)
	require.NoError(t, err)
	stride := 4 * tr.NumEdges()
	for i := 0; i < res.Instances(); i++ {
		pot := p.Gradient[i*stride : (i+1)*stride]
		for h := 0; h < p.K; h++ {
			labels := res.Assignment(i, h)
			require.Len(t, labels, 9)
			for _, y := range labels {
				require.True(t, y == 0 || y == 1)
			}
			assert.InDelta(t, inference.Score(tr, pot, labels), res.YmaxVal.At(i, h), 1e-9)
			if h > 0 {
				assert.GreaterOrEqual(t, res.YmaxVal.At(i, h-1), res.YmaxVal.At(i, h))
			}
		}
	}
}

func TestComputeIndependentOfScheduling(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := randomProblem(rng, 7, 321, 4)
	// quantize so that ties appear
	for i, v := range p.Gradient {
		p.Gradient[i] = math.Round(v)
	}

	want, err := New(Config{ChunkSize: 1000, Workers: 1}).Compute(context.Background(), p)
	require.NoError(t, err)
	for _, cfg := range []Config{{ChunkSize: 1, Workers: 8}, {ChunkSize: 17, Workers: 3}, {}} {
		got, err := New(cfg).Compute(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestComputeEmptyBatch(t *testing.T) {
	p := pathProblem()
	p.Gradient = nil
	res, err := Compute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Instances())
	assert.Equal(t, 6, res.Ymax.Cols)
}

func TestComputePadsPastDistinctLabelings(t *testing.T) {
	p := Problem{
		Gradient:   []float64{4, 3, 2, 1},
		K:          6,
		Edges:      [][2]int{{0, 1}},
		NodeDegree: []int{1, 1},
	}
	res, err := Compute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, res.Found)
	for h, want := range []float64{4, 3, 2, 1, 1, 1} {
		assert.InDelta(t, want, res.YmaxVal.At(0, h), 1e-9, "rank %d", h)
	}
	assert.Equal(t, []int{1, 1}, res.Assignment(0, 3))
	assert.Equal(t, res.Assignment(0, 3), res.Assignment(0, 5))
}

func TestComputeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Problem)
		want   error
	}{
		{"k zero", func(p *Problem) { p.K = 0 }, ErrInvalidK},
		{"k too large", func(p *Problem) { p.K = 1 << 50 }, ErrTooLarge},
		{"gradient length", func(p *Problem) { p.Gradient = p.Gradient[:7] }, ErrShapeMismatch},
		{"nan", func(p *Problem) { p.Gradient[3] = math.NaN() }, ErrNonFinite},
		{"inf", func(p *Problem) { p.Gradient[0] = math.Inf(-1) }, ErrNonFinite},
		{"degree", func(p *Problem) { p.NodeDegree = []int{1, 1, 1} }, tree.ErrDegreeMismatch},
		{"edge count", func(p *Problem) { p.NodeDegree = []int{1, 2, 1, 0} }, tree.ErrEdgeCount},
		{"endpoint", func(p *Problem) { p.Edges[1] = [2]int{1, 3} }, tree.ErrEndpointRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pathProblem()
			tt.mutate(&p)
			res, err := Compute(context.Background(), p)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestComputeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Compute(ctx, pathProblem())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromHost(t *testing.T) {
	// column-major 2x2 E with 1-based endpoints: rows (1,2) and (2,3)
	e, err := MatrixFrom(2, 2, []float64{1, 2, 2, 3})
	require.NoError(t, err)
	deg, err := MatrixFrom(1, 3, []float64{1, 2, 1})
	require.NoError(t, err)

	p, err := FromHost(make([]float64, 8), 2.9, e, deg, true)
	require.NoError(t, err)
	assert.Equal(t, 2, p.K)
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, p.Edges)
	assert.Equal(t, []int{1, 2, 1}, p.NodeDegree)

	_, err = FromHost(nil, 1, deg, deg, false)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	bad, err := MatrixFrom(1, 2, []float64{0, 1.5})
	require.NoError(t, err)
	_, err = FromHost(nil, 1, bad, deg, false)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = MatrixFrom(2, 2, []float64{1})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 25\nworkers: 2\nroot: 1\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.ChunkSize)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 1, cfg.Root)
	assert.Equal(t, inference.DefaultEpsilon, cfg.Epsilon)

	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 0\n"), 0644))
	_, err = LoadConfig(path)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
