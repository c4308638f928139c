package inference

import "github.com/happyhackingspace/treetopk/tree"

// Decoded holds the best distinct labelings of one instance, best first.
type Decoded struct {
	Labels [][]int   // [Found][nlabel], each entry 0 or 1
	Scores []float64 // [Found]
	// Found is min(K, 2^nlabel), the number of distinct labelings.
	Found int
}

type frame struct {
	node, label, rank int
}

// Backward decodes the K best labelings from the forward tables by
// following the traces from the root down to every node.
func Backward(t *tree.Tree, tb *Tables) Decoded {
	found := tb.Root.Len()
	dec := Decoded{
		Labels: make([][]int, found),
		Scores: make([]float64, found),
		Found:  found,
	}
	for h := 0; h < found; h++ {
		dec.Labels[h] = decodeOne(t, tb, h)
		dec.Scores[h] = tb.Root.P[h]
	}
	return dec
}

func decodeOne(t *tree.Tree, tb *Tables, h int) []int {
	labels := make([]int, t.NumNodes())
	rt := tb.Root.T[h]
	stack := []frame{{node: t.Root, label: rt.Label, rank: rt.Prev}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		labels[f.node] = f.label

		folds := tb.Nodes[f.node].Fold[f.label]
		children := t.Children[f.node]
		r := f.rank
		for j := len(children) - 1; j >= 0; j-- {
			tr := folds[j+1].T[r]
			c := children[j]
			up := tb.Nodes[c].Up[f.label].T[tr.Pick]
			stack = append(stack, frame{node: c, label: up.Label, rank: up.Prev})
			r = tr.Prev
		}
	}
	return labels
}
