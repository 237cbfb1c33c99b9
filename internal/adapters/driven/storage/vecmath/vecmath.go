// Package vecmath holds the vector encoding, similarity and embedding
// helpers shared by the vector store adapters.
package vecmath

import (
	"encoding/binary"
	"math"
	"sort"
)

// Encode serialises a vector as little-endian float32s.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode is the inverse of Encode. Trailing bytes that do not form a
// whole float32 are ignored.
func Decode(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// CosineDistance returns 1 - cosine similarity. Vectors of different length
// or with zero magnitude are at distance 1.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Normalize scales v to unit length in place. Zero vectors are unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}

// Candidate is a scored item awaiting ranking. Seq is the insertion order.
type Candidate struct {
	Seq      int64
	Distance float64
}

// TopK returns the indexes of the k best candidates, ordered by ascending
// distance with ties broken by ascending Seq.
func TopK(cands []Candidate, k int) []int {
	idx := make([]int, len(cands))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := cands[idx[i]], cands[idx[j]]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.Seq < b.Seq
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}
