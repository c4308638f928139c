// Package inference computes the K best joint labelings of a binary label
// tree from per-edge potentials.
//
// Each edge carries four potentials ordered by slot 2*y_u + y_v, where
// (u, v) is the edge as written in the edge list. The score of a labeling is
// the sum over edges of the potential selected by its endpoint labels.
// Ties are broken by the traversal from t.Root, so their order depends on the
// root the tree was oriented from.
//
//	tables := inference.Forward(t, pot, k)
//	dec := inference.Backward(t, tables)
//	fmt.Println(dec.Labels[0], dec.Scores[0]) // best labeling
package inference

import "github.com/happyhackingspace/treetopk/tree"

// NodeTable holds the forward messages of one node.
type NodeTable struct {
	// Fold[y][j] holds the K best partial scores of the node's subtree
	// restricted to its first j children, given the node takes label y.
	// Fold[y][0] is the base case.
	Fold [2][]Column
	// Up[y] holds the K best scores of the node's whole subtree plus the
	// edge to its parent, given the parent takes label y.
	Up [2]Column
}

// Tables is the result of the forward pass for one instance.
type Tables struct {
	K     int
	Nodes []NodeTable
	// Root ranks complete labelings, best first.
	Root Column
}

// EdgePotential returns the potential of the edge between c and its parent
// when the parent takes yParent and c takes yChild.
func EdgePotential(t *tree.Tree, pot []float64, c, yParent, yChild int) float64 {
	e := t.ParentEdge[c]
	if t.ChildIsSecond(c) {
		return pot[4*e+2*yParent+yChild]
	}
	return pot[4*e+2*yChild+yParent]
}

// Forward runs the bottom-up pass over t for one instance. pot holds the
// instance's 4*E potentials; k bounds every candidate list.
func Forward(t *tree.Tree, pot []float64, k int) *Tables {
	tb := &Tables{K: k, Nodes: make([]NodeTable, t.NumNodes())}

	for idx := len(t.Order) - 1; idx >= 0; idx-- {
		v := t.Order[idx]
		nt := &tb.Nodes[v]
		children := t.Children[v]

		for y := 0; y < 2; y++ {
			folds := make([]Column, len(children)+1)
			folds[0] = baseColumn()
			for j, c := range children {
				folds[j+1] = sumTopK(folds[j].P, tb.Nodes[c].Up[y].P, k)
			}
			nt.Fold[y] = folds
		}

		last0 := nt.Fold[0][len(children)].P
		last1 := nt.Fold[1][len(children)].P
		if v == t.Root {
			tb.Root = mergeLabels(last0, last1, 0, 0, k)
			continue
		}
		for yp := 0; yp < 2; yp++ {
			nt.Up[yp] = mergeLabels(last0, last1,
				EdgePotential(t, pot, v, yp, 0),
				EdgePotential(t, pot, v, yp, 1), k)
		}
	}
	return tb
}
