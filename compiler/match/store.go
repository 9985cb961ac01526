package match

import (
	"slices"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/irdiff/compiler/ir"
)

type (
	Side int

	// Store holds symmetric match relations between two programs.
	// Every pair is written to both directions at once.
	Store struct {
		confirmed biMap[ir.ValueID]
		tentative biMap[ir.ValueID]
		blocks    biMap[ir.BlockID]

		order []Pair
	}

	Pair struct {
		L, R ir.ValueID
	}

	BlockPair struct {
		L, R ir.BlockID
	}

	biMap[K ~int] struct {
		fwd map[K]K
		rev map[K]K
	}
)

const (
	Left Side = iota
	Right
)

func NewStore() *Store {
	return &Store{
		confirmed: makeBiMap[ir.ValueID](),
		tentative: makeBiMap[ir.ValueID](),
		blocks:    makeBiMap[ir.BlockID](),
	}
}

// Propose records a tentative pair if neither side has any partner yet.
func (s *Store) Propose(l, r ir.ValueID) bool {
	if s.IsMatched(Left, l) || s.IsMatched(Right, r) {
		return false
	}

	s.tentative.put(l, r)
	s.order = append(s.order, Pair{L: l, R: r})

	return true
}

// Confirm makes the pair permanent. It refuses to replace an existing
// different partner of either side.
func (s *Store) Confirm(l, r ir.ValueID) bool {
	if x, ok := s.confirmed.get(Left, l); ok {
		return x == r
	}

	if s.confirmed.has(Right, r) {
		return false
	}

	s.confirmed.put(l, r)

	return true
}

func (s *Store) ConfirmBlocks(l, r ir.BlockID) bool {
	if x, ok := s.blocks.get(Left, l); ok {
		return x == r
	}

	if s.blocks.has(Right, r) {
		return false
	}

	s.blocks.put(l, r)

	return true
}

func (s *Store) IsMatched(side Side, v ir.ValueID) bool {
	return s.confirmed.has(side, v) || s.tentative.has(side, v)
}

func (s *Store) Matched(l, r ir.ValueID) bool {
	if x, ok := s.confirmed.get(Left, l); ok {
		return x == r
	}

	if x, ok := s.tentative.get(Left, l); ok {
		return x == r
	}

	return false
}

func (s *Store) Partner(side Side, v ir.ValueID) (ir.ValueID, bool) {
	if x, ok := s.confirmed.get(side, v); ok {
		return x, true
	}

	return s.tentative.get(side, v)
}

func (s *Store) IsConfirmed(side Side, v ir.ValueID) bool {
	return s.confirmed.has(side, v)
}

func (s *Store) BlockConfirmed(side Side, b ir.BlockID) bool {
	return s.blocks.has(side, b)
}

func (s *Store) BlockPartner(side Side, b ir.BlockID) (ir.BlockID, bool) {
	return s.blocks.get(side, b)
}

func (s *Store) BlocksMatched(l, r ir.BlockID) bool {
	x, ok := s.blocks.get(Left, l)

	return ok && x == r
}

func (s *Store) ClearTentative() {
	s.tentative.reset()
	s.order = s.order[:0]
}

// Tentative returns the number of tentative pairs.
func (s *Store) Tentative() int {
	return len(s.order)
}

// Commit promotes all tentative pairs to confirmed and returns their number.
func (s *Store) Commit() (n int) {
	for _, p := range s.order {
		if s.Confirm(p.L, p.R) {
			n++
		}
	}

	s.ClearTentative()

	return n
}

// Confirmed returns the number of confirmed value pairs.
func (s *Store) Confirmed() int {
	return len(s.confirmed.fwd)
}

func (s *Store) ConfirmedBlocks() int {
	return len(s.blocks.fwd)
}

// RangeValues iterates confirmed value pairs ordered by the left handle.
func (s *Store) RangeValues(f func(l, r ir.ValueID) bool) {
	s.confirmed.rangeSorted(f)
}

func (s *Store) RangeBlocks(f func(l, r ir.BlockID) bool) {
	s.blocks.rangeSorted(f)
}

func (p Pair) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendFormat(b, "%d~%d", p.L, p.R)
}

func (p BlockPair) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendFormat(b, "b%d~b%d", p.L, p.R)
}

func (s Side) Other() Side {
	return 1 - s
}

func (s Side) String() string {
	if s == Left {
		return "left"
	}

	return "right"
}

func makeBiMap[K ~int]() biMap[K] {
	return biMap[K]{
		fwd: map[K]K{},
		rev: map[K]K{},
	}
}

func (m *biMap[K]) side(s Side) map[K]K {
	if s == Left {
		return m.fwd
	}

	return m.rev
}

func (m *biMap[K]) get(s Side, k K) (K, bool) {
	x, ok := m.side(s)[k]
	return x, ok
}

func (m *biMap[K]) has(s Side, k K) bool {
	_, ok := m.side(s)[k]
	return ok
}

func (m *biMap[K]) put(l, r K) {
	m.fwd[l] = r
	m.rev[r] = l
}

func (m *biMap[K]) reset() {
	clear(m.fwd)
	clear(m.rev)
}

func (m *biMap[K]) rangeSorted(f func(l, r K) bool) {
	keys := make([]K, 0, len(m.fwd))

	for k := range m.fwd {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	for _, k := range keys {
		if !f(k, m.fwd[k]) {
			return
		}
	}
}
