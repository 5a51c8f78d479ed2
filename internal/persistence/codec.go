package persistence

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/talgya/spinmc/internal/vec"
)

// Blobs are little-endian float64 arrays.

func encodeFloats(values []float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeFloats(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("blob of %d bytes is not a float64 array", len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}

func encodeVectors(vs []vec.Vector3) []byte {
	flat := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		c := vec.Components(v)
		flat = append(flat, c[:]...)
	}
	return encodeFloats(flat)
}

func decodeVectors(buf []byte) ([]vec.Vector3, error) {
	flat, err := decodeFloats(buf)
	if err != nil {
		return nil, err
	}
	if len(flat)%3 != 0 {
		return nil, fmt.Errorf("blob of %d values is not a vector array", len(flat))
	}
	out := make([]vec.Vector3, len(flat)/3)
	for i := range out {
		out[i] = vec.FromSlice(flat[3*i:])
	}
	return out, nil
}

// splitChunks cuts values into at most n contiguous pieces of near-equal
// length. Empty input yields a single empty chunk.
func splitChunks(values []float64, n int) [][]float64 {
	if len(values) == 0 {
		return [][]float64{{}}
	}
	size := (len(values) + n - 1) / n
	var out [][]float64
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		out = append(out, values[start:end])
	}
	return out
}
