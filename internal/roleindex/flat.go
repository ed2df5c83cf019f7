package roleindex

import (
	"fmt"
	"sort"
)

// FlatIndex is an exhaustive inner-product index over fixed-size vectors,
// stored row-major. It is safe for concurrent searches once built.
type FlatIndex struct {
	dim  int
	data []float32
}

// NewFlatIndex creates an empty index for vectors of dimension dim.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Dim returns the vector dimension.
func (f *FlatIndex) Dim() int {
	return f.dim
}

// Len returns the number of stored vectors.
func (f *FlatIndex) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vectors; ids are assigned in insertion order.
func (f *FlatIndex) Add(vecs ...[]float32) error {
	for i, v := range vecs {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), f.dim)
		}
	}
	for _, v := range vecs {
		f.data = append(f.data, v...)
	}
	return nil
}

// Vector returns a copy of the stored vector id.
func (f *FlatIndex) Vector(id int) []float32 {
	out := make([]float32, f.dim)
	copy(out, f.data[id*f.dim:(id+1)*f.dim])
	return out
}

// Search returns k slots ordered by descending inner product with q. Equal
// scores keep insertion order. When k exceeds the index size the remaining
// slots hold id -1.
func (f *FlatIndex) Search(q []float32, k int) (scores []float32, ids []int) {
	if k <= 0 {
		return nil, nil
	}
	scores = make([]float32, k)
	ids = make([]int, k)
	for i := range ids {
		ids[i] = -1
	}
	if len(q) != f.dim {
		return scores, ids
	}

	n := f.Len()
	order := make([]int, n)
	all := make([]float32, n)
	for i := 0; i < n; i++ {
		order[i] = i
		row := f.data[i*f.dim : (i+1)*f.dim]
		var dot float32
		for j, x := range row {
			dot += x * q[j]
		}
		all[i] = dot
	}
	sort.SliceStable(order, func(a, b int) bool {
		return all[order[a]] > all[order[b]]
	})

	for i := 0; i < k && i < n; i++ {
		ids[i] = order[i]
		scores[i] = all[order[i]]
	}
	return scores, ids
}
