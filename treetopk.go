// Package treetopk decodes, for a batch of independent instances, the K
// highest scoring joint labelings of a binary label tree from per-edge
// potentials.
//
// Every instance shares the same tree; only the potentials differ.
//
// Labelings of equal score come out in a fixed order for a given anchor node
// (Config.Root), but a different anchor may order them differently.
//
//	p := treetopk.Problem{
//	    Gradient:   pot,                     // 4 potentials per edge per instance
//	    K:          3,
//	    Edges:      [][2]int{{0, 1}, {1, 2}},
//	    NodeDegree: []int{1, 2, 1},
//	}
//	res, _ := treetopk.New(treetopk.DefaultConfig()).Compute(ctx, p)
//	fmt.Println(res.Assignment(0, 0)) // best labeling of instance 0
//	fmt.Println(res.YmaxVal.At(0, 0)) // its score
package treetopk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/happyhackingspace/treetopk/inference"
	"github.com/happyhackingspace/treetopk/internal/batch"
	"github.com/happyhackingspace/treetopk/tree"
)

var (
	// ErrInvalidK is returned when K < 1.
	ErrInvalidK = errors.New("K must be at least 1")
	// ErrShapeMismatch is returned when input dimensions disagree.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNonFinite is returned when a potential is NaN or infinite.
	ErrNonFinite = errors.New("non-finite potential")
	// ErrConfig is returned for an unusable Config.
	ErrConfig = errors.New("invalid config")
	// ErrTooLarge is returned when the output matrices would exceed MaxOutputCells.
	ErrTooLarge = errors.New("output too large")
)

// MaxOutputCells bounds mm·K·nlabel, the size of Ymax.
const MaxOutputCells = 1 << 28

// Problem is one batch: a tree shared by every instance and the flattened
// potentials of all instances, laid out instance-major with 4 slots per edge.
type Problem struct {
	Gradient   []float64 `json:"gradient" yaml:"gradient"`
	K          int       `json:"k" yaml:"k"`
	Edges      [][2]int  `json:"edges" yaml:"edges"`
	NodeDegree []int     `json:"node_degree" yaml:"node_degree"`
}

// Result holds the decoded labelings of a batch.
type Result struct {
	K         int
	NumLabels int
	// Ymax is mm × (K·nlabel): row i holds K labelings of nlabel values each.
	Ymax *Matrix
	// YmaxVal is mm × K: the scores of those labelings, best first.
	YmaxVal *Matrix
	// Found is the number of distinct labelings per instance (< K only when
	// the tree has fewer than K labelings).
	Found []int
	// Shift is the normalization shift added back once per edge.
	Shift float64
}

// Instances returns mm.
func (r *Result) Instances() int { return r.YmaxVal.Rows }

// Assignment returns the h-th best labeling of instance i.
func (r *Result) Assignment(i, h int) []int {
	labels := make([]int, r.NumLabels)
	for v := range labels {
		labels[v] = int(r.Ymax.At(i, h*r.NumLabels+v))
	}
	return labels
}

// Engine runs batches with a fixed Config.
type Engine struct {
	cfg Config
}

// New creates an Engine. Zero fields of cfg fall back to DefaultConfig.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = def.Epsilon
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Validate checks p and returns the oriented tree and the instance count.
func (e *Engine) Validate(p Problem) (*tree.Tree, int, error) {
	if p.K < 1 {
		return nil, 0, fmt.Errorf("treetopk: %w, got %d", ErrInvalidK, p.K)
	}
	t, err := tree.NewTree(p.Edges, p.NodeDegree, e.cfg.Root)
	if err != nil {
		return nil, 0, fmt.Errorf("treetopk: %w", err)
	}
	stride := 4 * t.NumEdges()
	if len(p.Gradient)%stride != 0 {
		return nil, 0, fmt.Errorf("treetopk: %w: gradient length %d is not a multiple of 4*%d",
			ErrShapeMismatch, len(p.Gradient), t.NumEdges())
	}
	for i, v := range p.Gradient {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, 0, fmt.Errorf("treetopk: %w at index %d", ErrNonFinite, i)
		}
	}
	mm := len(p.Gradient) / stride
	if err := checkOutputSize(mm, p.K, t.NumNodes()); err != nil {
		return nil, 0, fmt.Errorf("treetopk: %w", err)
	}
	return t, mm, nil
}

// checkOutputSize rejects K·nlabel and mm·K·nlabel above MaxOutputCells
// before anything is allocated; the divisions keep the products from
// overflowing.
func checkOutputSize(mm, k, nlabel int) error {
	if k > MaxOutputCells/nlabel {
		return fmt.Errorf("%w: K=%d with %d labels", ErrTooLarge, k, nlabel)
	}
	if mm > 0 && mm > MaxOutputCells/(k*nlabel) {
		return fmt.Errorf("%w: %d instances × K=%d × %d labels", ErrTooLarge, mm, k, nlabel)
	}
	return nil
}

// Compute decodes every instance of p. It either returns a fully populated
// Result or an error, never both.
func (e *Engine) Compute(ctx context.Context, p Problem) (*Result, error) {
	t, mm, err := e.Validate(p)
	if err != nil {
		return nil, err
	}
	k, nlabel, nedge := p.K, t.NumNodes(), t.NumEdges()
	stride := 4 * nedge

	working, shift := inference.Normalize(p.Gradient, e.cfg.Epsilon)
	res := &Result{
		K:         k,
		NumLabels: nlabel,
		Ymax:      NewMatrix(mm, k*nlabel),
		YmaxVal:   NewMatrix(mm, k),
		Found:     make([]int, mm),
		Shift:     shift,
	}

	chunks := batch.Partition(mm, e.cfg.ChunkSize)
	slog.Debug("Decoding batch", "instances", mm, "labels", nlabel, "k", k,
		"max_degree", t.MaxDegree, "chunks", len(chunks), "workers", e.cfg.Workers)
	start := time.Now()

	err = batch.Run(ctx, chunks, e.cfg.Workers, func(i int) error {
		pot := working[i*stride : (i+1)*stride]
		dec := inference.Backward(t, inference.Forward(t, pot, k))
		for h := 0; h < k; h++ {
			// slots past Found repeat the last distinct labeling
			d := min(h, dec.Found-1)
			for v, y := range dec.Labels[d] {
				res.Ymax.Set(i, h*nlabel+v, float64(y))
			}
			res.YmaxVal.Set(i, h, dec.Scores[d])
		}
		res.Found[i] = dec.Found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("treetopk: %w", err)
	}

	// every labeling sums exactly one potential per edge
	correction := shift * float64(nedge)
	for i := range res.YmaxVal.Data {
		res.YmaxVal.Data[i] += correction
	}
	slog.Debug("Batch decoded", "instances", mm, "duration", time.Since(start))
	return res, nil
}

// Compute runs p with DefaultConfig.
func Compute(ctx context.Context, p Problem) (*Result, error) {
	return New(DefaultConfig()).Compute(ctx, p)
}

// FromHost converts host matrices into a Problem: K is truncated toward zero,
// e is E_nrow×2 and nodeDegree is 1×nlabel. With oneBased the edge endpoints
// are numbered from 1.
func FromHost(gradient []float64, k float64, e, nodeDegree *Matrix, oneBased bool) (Problem, error) {
	if e == nil || e.Cols != 2 {
		return Problem{}, fmt.Errorf("treetopk: %w: E must have 2 columns", ErrShapeMismatch)
	}
	if nodeDegree == nil || nodeDegree.Rows != 1 {
		return Problem{}, fmt.Errorf("treetopk: %w: node_degree must be a row vector", ErrShapeMismatch)
	}
	if len(e.Data) != e.Rows*e.Cols || len(nodeDegree.Data) != nodeDegree.Cols {
		return Problem{}, fmt.Errorf("treetopk: %w: matrix data does not match its dimensions", ErrShapeMismatch)
	}
	if math.IsNaN(k) || math.IsInf(k, 0) {
		return Problem{}, fmt.Errorf("treetopk: %w: K = %v", ErrInvalidK, k)
	}

	offset := 0
	if oneBased {
		offset = 1
	}
	p := Problem{
		Gradient:   gradient,
		K:          int(k),
		Edges:      make([][2]int, e.Rows),
		NodeDegree: make([]int, nodeDegree.Cols),
	}
	for r := 0; r < e.Rows; r++ {
		for c := 0; c < 2; c++ {
			v, err := asInt(e.At(r, c))
			if err != nil {
				return Problem{}, fmt.Errorf("treetopk: E(%d,%d): %w", r, c, err)
			}
			p.Edges[r][c] = v - offset
		}
	}
	for j := 0; j < nodeDegree.Cols; j++ {
		v, err := asInt(nodeDegree.At(0, j))
		if err != nil {
			return Problem{}, fmt.Errorf("treetopk: node_degree(%d): %w", j, err)
		}
		p.NodeDegree[j] = v
	}
	return p, nil
}

func asInt(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrShapeMismatch, v)
	}
	return int(v), nil
}
