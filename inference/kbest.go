package inference

import "github.com/emirpasic/gods/trees/binaryheap"

// Column is one K-best slot of a node table: partial scores P (best first)
// and the trace T that says where each score came from.
type Column struct {
	P []float64
	T []Trace
}

// Trace links a partial score back to the candidates it was built from.
// Its meaning depends on the column kind:
//
//	up message: Label = child label, Prev = rank in the child's last fold
//	fold:       Prev = rank in the previous fold, Pick = rank in the child's up message
//	root:       Label = root label, Prev = rank in the root's last fold
type Trace struct {
	Label int
	Prev  int
	Pick  int
}

// Len returns the number of hypotheses held.
func (c Column) Len() int { return len(c.P) }

// baseColumn is the neutral fold of a node with no children folded in yet.
func baseColumn() Column {
	return Column{P: []float64{0}, T: []Trace{{}}}
}

// mergeLabels returns the k best of {a[i] + wa} ∪ {b[j] + wb}, where a holds
// the candidates for label 0 and b those for label 1. Both inputs are sorted
// best first; on equal scores label 0 wins, then the lower rank.
func mergeLabels(a, b []float64, wa, wb float64, k int) Column {
	n := min(k, len(a)+len(b))
	out := Column{P: make([]float64, 0, n), T: make([]Trace, 0, n)}
	i, j := 0, 0
	for len(out.P) < n {
		if j >= len(b) || (i < len(a) && a[i]+wa >= b[j]+wb) {
			out.P = append(out.P, a[i]+wa)
			out.T = append(out.T, Trace{Label: 0, Prev: i})
			i++
			continue
		}
		out.P = append(out.P, b[j]+wb)
		out.T = append(out.T, Trace{Label: 1, Prev: j})
		j++
	}
	return out
}

type pair struct {
	score float64
	i, j  int
}

// byScore orders pairs best first: higher score, then lower i, then lower j.
func byScore(x, y interface{}) int {
	p, q := x.(pair), y.(pair)
	switch {
	case p.score > q.score:
		return -1
	case p.score < q.score:
		return 1
	case p.i != q.i:
		return p.i - q.i
	default:
		return p.j - q.j
	}
}

// sumTopK returns the k best sums a[i] + b[j] of two lists sorted best first.
// The frontier starts at (0,0); popping (i,j) admits (i,j+1), and (i+1,0)
// when j == 0, so each pair enters the heap at most once and at most k pops
// are needed.
func sumTopK(a, b []float64, k int) Column {
	if len(a) == 0 || len(b) == 0 {
		return Column{}
	}
	n := min(k, len(a)*len(b))
	out := Column{P: make([]float64, 0, n), T: make([]Trace, 0, n)}

	h := binaryheap.NewWith(byScore)
	h.Push(pair{score: a[0] + b[0]})
	for len(out.P) < n {
		v, ok := h.Pop()
		if !ok {
			break
		}
		p := v.(pair)
		out.P = append(out.P, p.score)
		out.T = append(out.T, Trace{Prev: p.i, Pick: p.j})
		if p.j+1 < len(b) {
			h.Push(pair{score: a[p.i] + b[p.j+1], i: p.i, j: p.j + 1})
		}
		if p.j == 0 && p.i+1 < len(a) {
			h.Push(pair{score: a[p.i+1] + b[0], i: p.i + 1})
		}
	}
	return out
}
