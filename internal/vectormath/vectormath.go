// Package vectormath provides the similarity arithmetic shared by the
// vector store implementations.
package vectormath

import "math"

// Cosine returns the cosine similarity dot(a,b) / (||a|| * ||b||).
// When either vector has zero norm the result is 0.0; this never divides
// by zero. Both vectors must have the same length - callers validate
// dimensions before storage, so a mismatch here is a programming error
// and the shorter length is never silently used.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
