package core

import (
	"unsafe"

	"honnef.co/go/safeish"
)

// At returns a typed pointer to the idx-th element of a pitched buffer
// starting at base, without copying — the same cast-then-address pattern
// dominikh-go-libwayland's wire dispatcher uses to turn a raw event
// pointer into a typed one before touching it (safeish.Cast[*byte](...)
// there, safeish.Cast[*T](...) here for an arbitrary sample type). Every
// builtin kernel reads and writes pixel samples through this instead of
// raw unsafe.Pointer arithmetic, so the sample type is spelled out at each
// call site. Neither pitch nor T is checked against the buffer's real
// layout; a wrong one still compiles and addresses the wrong bytes.
func At[T any](base unsafe.Pointer, pitch, idx int) *T {
	off := uintptr(idx) * uintptr(pitch)
	return safeish.Cast[*T](unsafe.Add(base, off))
}

// Row returns a []byte view of the n-th row of a pitched buffer starting
// at base, without copying. pitch is the byte stride between rows and may
// exceed width; the engine addresses a planar Format's channel planes
// this way.
func Row(base unsafe.Pointer, pitch, row, width int) []byte {
	off := uintptr(row) * uintptr(pitch)
	ptr := safeish.Cast[*byte](unsafe.Add(base, off))
	return unsafe.Slice(ptr, width)
}

// Contiguous reports whether a buffer of n elements of the given byte size
// packed at the given pitch has no padding between rows, letting a kernel
// treat src/dst as one flat run instead of row-by-row.
func Contiguous(pitch, elemSize, perRow int) bool {
	return pitch == elemSize*perRow
}
