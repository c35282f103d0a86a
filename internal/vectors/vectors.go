// Package vectors provides the small set of dense-vector operations the
// ranking engine needs. All functions treat mismatched or empty inputs as
// zero-valued rather than panicking.
package vectors

import "math"

// Cosine returns the cosine similarity of a and b. It returns 0 when the
// vectors differ in length, are empty, or either has zero magnitude.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Norm returns the Euclidean magnitude of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Mean returns the element-wise mean of the given vectors. Vectors whose
// length differs from the first are skipped. Returns nil for empty input.
func Mean(vs [][]float64) []float64 {
	var sum []float64
	n := 0
	for _, v := range vs {
		if len(v) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(v))
		}
		if len(v) != len(sum) {
			continue
		}
		for i, x := range v {
			sum[i] += x
		}
		n++
	}
	if n == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float64(n)
	}
	return sum
}

// Scale returns v scaled by s as a new vector.
func Scale(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * s
	}
	return out
}

// Axpy returns a*x + y as a new vector. x and y must have equal length.
func Axpy(a float64, x, y []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = a*x[i] + y[i]
	}
	return out
}

// Rescale returns v adjusted to the target magnitude. A zero-magnitude v is
// returned unchanged since it has no direction to preserve.
func Rescale(v []float64, target float64) []float64 {
	n := Norm(v)
	if n == 0 {
		return v
	}
	return Scale(v, target/n)
}
