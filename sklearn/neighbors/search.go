// Package neighbors provides brute-force nearest-neighbor search and the
// k-nearest-neighbors classifier.
package neighbors

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Neighbor is a row index and its squared Euclidean distance to a query.
type Neighbor struct {
	Index int
	Dist  float64
}

// KNearest returns the k rows of X closest to query, nearest first. Rows
// listed in exclude are skipped. Ties keep the lower row index first.
func KNearest(X *mat.Dense, query []float64, k int, exclude ...int) []Neighbor {
	rows, _ := X.Dims()
	skip := make(map[int]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}

	// A small sorted slice of the k nearest found so far.
	nbrs := make([]Neighbor, 0, k+1)
	for j := 0; j < rows; j++ {
		if _, ok := skip[j]; ok {
			continue
		}
		d := euclidSquared(query, X.RawRowView(j))
		if len(nbrs) == k && d >= nbrs[k-1].Dist {
			continue
		}
		pos := sort.Search(len(nbrs), func(i int) bool { return nbrs[i].Dist > d })
		nbrs = append(nbrs, Neighbor{})
		copy(nbrs[pos+1:], nbrs[pos:])
		nbrs[pos] = Neighbor{Index: j, Dist: d}
		if len(nbrs) > k {
			nbrs = nbrs[:k]
		}
	}
	return nbrs
}

func euclidSquared(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
