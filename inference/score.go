package inference

import "github.com/happyhackingspace/treetopk/tree"

// Score re-derives the score of a labeling from the instance potentials.
func Score(t *tree.Tree, pot []float64, labels []int) float64 {
	var s float64
	for e, uv := range t.Edges {
		s += pot[4*e+2*labels[uv[0]]+labels[uv[1]]]
	}
	return s
}
