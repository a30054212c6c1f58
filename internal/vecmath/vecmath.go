// Package vecmath holds the small numeric primitives shared by the vector
// store (C2) and the hybrid retriever (C4): cosine similarity and the
// little-endian float32 BLOB encoding used to persist embeddings in SQLite.
package vecmath

import (
	"encoding/binary"
	"math"
)

// Cosine computes the cosine similarity between two float32 vectors,
// returning a value in [-1, 1]. Mismatched or empty vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dotProduct += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dotProduct / denom
}

// ToBytes converts a float32 slice to a byte slice (little-endian), the
// form stored in the embedding BLOB columns.
func ToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// FromBytes converts a little-endian byte slice back to a float32 slice.
func FromBytes(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
