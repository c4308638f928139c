// Package tree holds the label tree: its edge list, per-node degrees and an
// orientation from a root node.
package tree

import (
	"errors"
	"fmt"
)

// Structural errors returned by NewTree.
var (
	ErrTooFewNodes    = errors.New("tree: need at least two nodes")
	ErrEdgeCount      = errors.New("tree: edge count must be nlabel-1")
	ErrEndpointRange  = errors.New("tree: edge endpoint out of range")
	ErrSelfLoop       = errors.New("tree: self loop")
	ErrDegreeMismatch = errors.New("tree: node degree does not match edge list")
	ErrDisconnected   = errors.New("tree: edge list is not connected")
	ErrRootRange      = errors.New("tree: root out of range")
)

// Tree is a validated label tree oriented from Root.
type Tree struct {
	Edges  [][2]int // edge list as supplied, E[e] = (u, v)
	Degree []int    // declared degree per node

	Root       int
	Parent     []int   // Parent[root] == -1
	ParentEdge []int   // index into Edges of the edge to the parent, -1 at the root
	Children   [][]int // children in edge-list order
	Order      []int   // breadth-first order, root first
	MaxDegree  int
}

// NumNodes returns nlabel.
func (t *Tree) NumNodes() int { return len(t.Degree) }

// NumEdges returns E_nrow.
func (t *Tree) NumEdges() int { return len(t.Edges) }

// ChildIsSecond reports whether node c is the second endpoint of the edge
// linking it to its parent. Potential slots are ordered 2*y_u + y_v.
func (t *Tree) ChildIsSecond(c int) bool {
	return t.Edges[t.ParentEdge[c]][1] == c
}

// NewTree validates edges and degree and orients the tree from root.
func NewTree(edges [][2]int, degree []int, root int) (*Tree, error) {
	n := len(degree)
	if n < 2 {
		return nil, ErrTooFewNodes
	}
	if len(edges) != n-1 {
		return nil, fmt.Errorf("%w: got %d edges for %d nodes", ErrEdgeCount, len(edges), n)
	}
	if root < 0 || root >= n {
		return nil, fmt.Errorf("%w: %d", ErrRootRange, root)
	}

	// incident[v] lists edge indices touching v, in edge-list order
	incident := make([][]int, n)
	for e, uv := range edges {
		u, v := uv[0], uv[1]
		if u < 0 || u >= n || v < 0 || v >= n {
			return nil, fmt.Errorf("%w: edge %d = (%d, %d)", ErrEndpointRange, e, u, v)
		}
		if u == v {
			return nil, fmt.Errorf("%w: edge %d at node %d", ErrSelfLoop, e, u)
		}
		incident[u] = append(incident[u], e)
		incident[v] = append(incident[v], e)
	}

	maxDegree := 0
	for v := 0; v < n; v++ {
		if len(incident[v]) != degree[v] {
			return nil, fmt.Errorf("%w: node %d declares %d, edges give %d",
				ErrDegreeMismatch, v, degree[v], len(incident[v]))
		}
		maxDegree = max(maxDegree, degree[v])
	}

	t := &Tree{
		Edges:      edges,
		Degree:     degree,
		Root:       root,
		Parent:     make([]int, n),
		ParentEdge: make([]int, n),
		Children:   make([][]int, n),
		Order:      make([]int, 0, n),
		MaxDegree:  maxDegree,
	}
	for v := 0; v < n; v++ {
		t.Parent[v] = -1
		t.ParentEdge[v] = -1
	}

	visited := make([]bool, n)
	visited[root] = true
	t.Order = append(t.Order, root)
	for head := 0; head < len(t.Order); head++ {
		v := t.Order[head]
		for _, e := range incident[v] {
			w := edges[e][0]
			if w == v {
				w = edges[e][1]
			}
			if visited[w] {
				continue
			}
			visited[w] = true
			t.Parent[w] = v
			t.ParentEdge[w] = e
			t.Children[v] = append(t.Children[v], w)
			t.Order = append(t.Order, w)
		}
	}
	if len(t.Order) != n {
		return nil, fmt.Errorf("%w: reached %d of %d nodes from %d", ErrDisconnected, len(t.Order), n, root)
	}
	return t, nil
}
