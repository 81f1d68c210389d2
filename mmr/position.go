package mmr

import "math/bits"

// Position arithmetic over the canonical MMR post-order layout (spec §3).
// Grounded on original_source/c/ckb_mmr.h's _mmr_pos_height_in_tree /
// _mmr_jump_left / _mmr_all_ones, and on original_source/src/helper.rs's
// pos_height_in_tree, which implement the same bit-level algorithm.

// BitLength64 returns the number of bits needed to represent x, i.e. the
// position of its highest set bit plus one. BitLength64(0) is 0.
func BitLength64(x uint64) uint64 {
	return uint64(bits.Len64(x))
}

// AllOnes reports whether x is non-zero and has no zero bits within its bit
// length (spec §3 "all_ones").
func AllOnes(x uint64) bool {
	if x == 0 {
		return false
	}
	return bits.OnesCount64(x) == bits.Len64(x)
}

// jumpLeft subtracts (msb(pos) - 1) from pos, per spec §3 height_in_tree.
func jumpLeft(pos uint64) uint64 {
	bitLength := BitLength64(pos)
	msb := uint64(1) << (bitLength - 1)
	return pos - (msb - 1)
}

// PosHeight returns the height of the perfect subtree rooted at pos (spec §3
// "height_in_tree"). IndexHeight is an alias kept for callers that use the
// teacher's other historical name for the same computation.
func PosHeight(pos uint64) uint64 {
	pos++
	for !AllOnes(pos) {
		pos = jumpLeft(pos)
	}
	return BitLength64(pos) - 1
}

// IndexHeight is PosHeight under the name used elsewhere in this package
// family.
func IndexHeight(pos uint64) uint64 {
	return PosHeight(pos)
}

// ParentOffset returns the distance from a node at height h to its parent.
func ParentOffset(height uint64) uint64 {
	return uint64(2) << height
}

// SiblingOffset returns the distance between siblings at height h.
func SiblingOffset(height uint64) uint64 {
	return (uint64(2) << height) - 1
}

// peakPosByHeight returns the position of the left-most (and therefore
// "all ones") peak of the given height.
func peakPosByHeight(height uint64) uint64 {
	return (uint64(1) << (height + 1)) - 2
}

// LeftPosForHeight is kept from the teacher's mmr/proof.go under its
// original name: the most-left position for the given height.
func LeftPosForHeight(height uint64) uint64 {
	return peakPosByHeight(height)
}

// peakCursor walks the expected peak positions of an MMR of a given size,
// from the highest (left-most) peak to the lowest (right-most), per spec §3
// "Peak positions" and §4.E. It is the Go counterpart of
// original_source/c/ckb_mmr.h's _mmr_peak_t plus
// _mmr_left_peak_height_pos/_mmr_get_right_peak.
type peakCursor struct {
	pos     uint64
	height  uint64
	present bool
	mmrSize uint64
}

// newPeakCursor initializes the cursor at the left-most peak of an MMR of
// the given size. Callers must not pass mmrSize == 0; the verifier rejects
// that input before ever constructing a cursor (spec §4.A).
func newPeakCursor(mmrSize uint64) peakCursor {
	height := uint64(1)
	prevPos := uint64(0)
	pos := peakPosByHeight(height)
	for pos < mmrSize {
		height++
		prevPos = pos
		pos = peakPosByHeight(height)
	}
	return peakCursor{pos: prevPos, height: height - 1, present: true, mmrSize: mmrSize}
}

// advance moves the cursor to the next right peak, or marks it absent once
// no more peaks exist. It mutates the cursor in place.
func (c *peakCursor) advance() {
	height := c.height
	pos := c.pos + SiblingOffset(height)
	for pos > c.mmrSize-1 {
		if height == 0 {
			c.present = false
			return
		}
		pos -= ParentOffset(height - 1)
		height--
	}
	c.height = height
	c.pos = pos
	c.present = true
}
