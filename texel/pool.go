package texel

import (
	"errors"
	"fmt"
)

// bufPool implements a stack-discipline scratch buffer allocator.
// Acquire returns a zeroed slice of the requested length, reusing a
// previously released allocation when one is large enough.
type bufPool[T any] struct {
	free  [][]T
	inUse int
}

// Acquire returns a buffer of length n. Contents are zeroed.
func (p *bufPool[T]) Acquire(n int) []T {
	p.inUse++
	for i := len(p.free) - 1; i >= 0; i-- {
		if cap(p.free[i]) >= n {
			buf := p.free[i][:n]
			p.free = append(p.free[:i], p.free[i+1:]...)
			var zero T
			for j := range buf {
				buf[j] = zero
			}
			return buf
		}
	}
	return make([]T, n)
}

// Release returns a buffer obtained from Acquire back to the pool.
func (p *bufPool[T]) Release(buf []T) error {
	if p.inUse <= 0 {
		return errors.New("more buffers released than acquired")
	}
	p.inUse--
	p.free = append(p.free, buf)
	return nil
}

// Pool provides scratch buffers to multi-pass operators so that repeated
// graph recomputes do not churn the allocator. Buffers are acquired and
// released within a single dispatch; holding one across dispatches is a
// programming error surfaced by AssertAllReleased.
type Pool struct {
	Float bufPool[float32]
	Int   bufPool[int32]
	tex   []*Texture
}

// AcquireTexture returns a zeroed scratch texture of the requested shape.
func (p *Pool) AcquireTexture(width, height int, format Format) *Texture {
	for i := len(p.tex) - 1; i >= 0; i-- {
		t := p.tex[i]
		if t.width == width && t.height == height && t.format == format {
			p.tex = append(p.tex[:i], p.tex[i+1:]...)
			for j := range t.data {
				t.data[j] = 0
			}
			return t
		}
	}
	return New(width, height, format)
}

// ReleaseTexture returns a scratch texture to the pool.
func (p *Pool) ReleaseTexture(t *Texture) {
	if t != nil {
		p.tex = append(p.tex, t)
	}
}

// AssertAllReleased returns an error if scratch buffers remain acquired.
// Called by the graph executor after every dispatch to catch leaks early.
func (p *Pool) AssertAllReleased() error {
	if p.Float.inUse != 0 || p.Int.inUse != 0 {
		return fmt.Errorf("texel: scratch buffers leaked: %d float, %d int", p.Float.inUse, p.Int.inUse)
	}
	return nil
}
