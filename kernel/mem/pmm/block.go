// Package pmm implements the multi-zone buddy allocator: the array-encoded
// per-zone buddy tree (Block, Zone) and the process-wide facade
// (PhysAllocator) that routes allocation and free traffic to the owning
// zone.
package pmm

import "solstice/kernel/mem"

// MaxOrder, MaxOrderPages and MaxZones are re-exported for readability at
// call sites in this package; they are the single source of truth in
// package mem.
const (
	MaxOrder      = mem.MaxOrder
	MaxOrderPages = mem.MaxOrderPages
	MaxZones      = mem.MaxZones
)

// Block is one byte of buddy-tree bookkeeping with two variants:
//
//   - Used: the slot is currently allocated, or sits beneath a used
//     ancestor.
//   - LargestFreeOrder(k): the largest free buddy order contained in the
//     subtree rooted at this slot is k.
//
// The zero byte must decode to Used, so that a freshly zeroed slab is a
// valid all-used tree; LargestFreeOrder(k) is therefore encoded as k+1,
// and any non-zero byte <= MaxOrder+1 decodes to LargestFreeOrder(byte-1).
type Block byte

// BlockUsed is the Used variant; by construction this is the zero value.
const BlockUsed Block = 0

// BlockFromOrder constructs the LargestFreeOrder(k) variant.
func BlockFromOrder(k uint8) Block {
	if uint(k) > MaxOrder {
		panic("pmm: order exceeds MaxOrder")
	}
	return Block(k + 1)
}

// IsUsed reports whether b is the Used variant.
func (b Block) IsUsed() bool {
	return b == BlockUsed
}

// Order returns the free order b encodes and true, or (0, false) if b is
// Used.
func (b Block) Order() (uint8, bool) {
	if b == BlockUsed {
		return 0, false
	}
	return uint8(b) - 1, true
}

// LargerThan reports whether the subtree rooted at b contains a free
// block of at least order `order`. Despite the name, the comparison is
// >=: a slot recording LargestFreeOrder(order) itself satisfies an
// allocation request for `order`.
func (b Block) LargerThan(order uint8) bool {
	k, ok := b.Order()
	if !ok {
		return false
	}
	return k >= order
}

// ParentState computes the value an internal buddy-tree slot must hold
// given the state of its two children:
//
//   - both LargestFreeOrder(k), equal k            -> LargestFreeOrder(k+1)
//   - both LargestFreeOrder, unequal                -> the larger of the two
//   - one LargestFreeOrder(k), other Used           -> LargestFreeOrder(k)
//   - both Used                                     -> Used
//
// Coalescing falls out of the first case for free: once both buddies of
// order k are free, their parent automatically reports a free block of
// order k+1, and a subsequent allocation of that order can select the
// pair without any separate merge step.
func ParentState(left, right Block) Block {
	lo, lok := left.Order()
	ro, rok := right.Order()
	switch {
	case lok && rok:
		if lo == ro {
			return BlockFromOrder(lo + 1)
		}
		if lo > ro {
			return BlockFromOrder(lo)
		}
		return BlockFromOrder(ro)
	case lok:
		return BlockFromOrder(lo)
	case rok:
		return BlockFromOrder(ro)
	default:
		return BlockUsed
	}
}
