package mempool

import (
	"sync"
)

// Sized pools for spectrum scratch planes ([]complex128) and amplitude planes
// ([]float64) so repeated FFT round trips do not allocate per call.

var (
	complexPools sync.Map // key: size class (int), value: *sync.Pool
	floatPools   sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next multiple of 1024 to reduce churn.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

func poolFor(pools *sync.Map, cls int, mk func() any) *sync.Pool {
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: mk})
	p, _ := pAny.(*sync.Pool)
	return p
}

// GetComplex retrieves a zeroed []complex128 of length n.
// The caller must return it via PutComplex when done.
func GetComplex(n int) []complex128 {
	cls := sizeClass(n)
	p := poolFor(&complexPools, cls, func() any { return make([]complex128, cls) })
	if p == nil {
		return make([]complex128, n)
	}
	buf, ok := p.Get().([]complex128)
	if !ok || cap(buf) < cls {
		buf = make([]complex128, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// PutComplex returns a buffer to the pool. It is safe to pass a nil slice.
func PutComplex(buf []complex128) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		// Not one of ours; let the GC have it.
		return
	}
	p := poolFor(&complexPools, cls, func() any { return make([]complex128, cls) })
	if p == nil {
		return
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetFloat64 retrieves a zeroed []float64 of length n.
// The caller must return it via PutFloat64 when done.
func GetFloat64(n int) []float64 {
	cls := sizeClass(n)
	p := poolFor(&floatPools, cls, func() any { return make([]float64, cls) })
	if p == nil {
		return make([]float64, n)
	}
	buf, ok := p.Get().([]float64)
	if !ok || cap(buf) < cls {
		buf = make([]float64, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// PutFloat64 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat64(buf []float64) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		return
	}
	p := poolFor(&floatPools, cls, func() any { return make([]float64, cls) })
	if p == nil {
		return
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetComplexMultiple retrieves one buffer per requested size.
func GetComplexMultiple(sizes []int) [][]complex128 {
	if len(sizes) == 0 {
		return nil
	}
	buffers := make([][]complex128, len(sizes))
	for i, size := range sizes {
		buffers[i] = GetComplex(size)
	}
	return buffers
}

// PutComplexMultiple returns multiple buffers to the pool.
func PutComplexMultiple(bufs [][]complex128) {
	for _, buf := range bufs {
		PutComplex(buf)
	}
}
