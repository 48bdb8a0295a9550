// Package safeconv provides integer conversions that panic on overflow.
// Use them where the bound is guaranteed by the data source, such as
// tree-sitter symbol counts or byte offsets of in-memory sources.
package safeconv

import "math"

// MustUint32ToUint16 converts uint32 to uint16, panics on overflow.
func MustUint32ToUint16(v uint32) uint16 {
	if v > math.MaxUint16 {
		panic("safeconv: uint32 to uint16 overflow")
	}

	return uint16(v)
}

// MustIntToUint16 converts int to uint16, panics on bounds violation.
func MustIntToUint16(v int) uint16 {
	if v < 0 || v > math.MaxUint16 {
		panic("safeconv: int to uint16 out of bounds")
	}

	return uint16(v)
}
