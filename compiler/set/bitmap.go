package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	Key interface {
		~int | ~int32 | ~int64
	}

	// Bitmap is a set of non-negative handles.
	Bitmap[K Key] struct {
		b  []uint64
		b0 [1]uint64
	}
)

func MakeBitmap[K Key](n int) Bitmap[K] {
	s := Bitmap[K]{}
	s.b = s.b0[:]

	n = (n + 63) / 64

	if n > len(s.b) {
		s.b = make([]uint64, n)
	}

	return s
}

func (s *Bitmap[K]) Set(k K) {
	i, j := ij(k)

	s.grow(i)

	s.b[i] |= 1 << j
}

func (s *Bitmap[K]) Clear(k K) {
	i, j := ij(k)

	if i >= len(s.b) {
		return
	}

	s.b[i] &^= 1 << j
}

func (s *Bitmap[K]) IsSet(k K) bool {
	if k < 0 {
		return false
	}

	i, j := ij(k)

	if i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

func (s *Bitmap[K]) Or(x Bitmap[K]) {
	s.grow(len(x.b) - 1)

	for i, x := range x.b {
		s.b[i] |= x
	}
}

func (s *Bitmap[K]) AndNot(x Bitmap[K]) {
	for i, x := range x.b {
		if i == len(s.b) {
			break
		}

		s.b[i] &^= x
	}
}

func (s *Bitmap[K]) Copy() Bitmap[K] {
	r := MakeBitmap[K](len(s.b) * 64)
	r.Or(*s)

	return r
}

func (s *Bitmap[K]) Size() (r int) {
	if s == nil {
		return 0
	}

	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

func (s *Bitmap[K]) Reset() {
	for i := range s.b {
		s.b[i] = 0
	}
}

func (s *Bitmap[K]) Range(f func(k K) bool) {
	for i, x := range s.b {
		for x != 0 {
			j := bits.TrailingZeros64(x)
			x &^= 1 << j

			if !f(K(i*64 + j)) {
				return
			}
		}
	}
}

// Slice returns the members in increasing order.
func (s *Bitmap[K]) Slice() (l []K) {
	s.Range(func(k K) bool {
		l = append(l, k)
		return true
	})

	return l
}

func (s Bitmap[K]) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(k K) bool {
		b = e.AppendInt(b, int(k))

		return true
	})

	b = e.AppendBreak(b)

	return b
}

func ij[K Key](k K) (i int, j int) {
	return int(k) / 64, int(k) % 64
}

func (s *Bitmap[K]) grow(i int) {
	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}
}
