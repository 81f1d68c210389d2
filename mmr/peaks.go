package mmr

import (
	"math/bits"
)

// Peaks returns the array of mountain peaks in the MMR. This is completely
// deterministic given a valid mmr size. If the mmr size is invalid, this
// function returns nil.
//
// It is guaranteed that the peaks are listed in ascending order of position
// value.  The highest peak has the lowest position and is listed first. This is
// a consequence of the fact that the 'little' 'down range' peaks can only appear
// to the 'right' of the first perfect peak, and so on recursively.
//
// Note that as a matter of implementation convenience and efficiency the peaks
// are returned as *one based positions*
//
// So given the example below, which has an mmrSize of 18, the peaks are [15, 18]
//
//	3            15
//	           /    \
//	          /      \
//	         /        \
//	2       7          14
//	      /   \       /   \
//	1    3     6    10     13      18
//	    / \  /  \   / \   /  \    /  \
//	0  1   2 4   5 8   9 11   12 16   17
//
// This and the verification VM's peakCursor (position.go) solve the same
// problem from opposite ends, and neither is redundant: Peaks builds the
// whole list up front, top peak down, by repeatedly carving the largest
// perfect subtree out of mmrSize — convenient for mmrtest.Builder, which
// needs every peak position at once to bag a root, for DecodeBundleHeader,
// which only needs to know whether Peaks(mmrSize) is nil, and for
// VerifyInclusion's termination check, which only needs
// len(Peaks(mmrSize)). peakCursor
// instead walks one position at a time, left peak to right, re-deriving the
// next expected position from the current one without ever materializing
// the full slice — the shape VerifyInclusion's markPeak command needs, since
// it must check each NODE-tagged peak against the cursor as it arrives
// rather than allocating ahead of a claimed mmrSize it hasn't validated the
// structure of. subtracting 1 from every element of Peaks(mmrSize) yields
// exactly the positions peakCursor visits; TestPeaksMatchesPeakCursor in
// peaks_test.go checks that correspondence directly for every valid size
// up to 39.
func Peaks(mmrSize uint64) []uint64 {
	if mmrSize == 0 {
		return nil
	}

	// catch invalid range, where siblings exist but no parent exists
	if PosHeight(mmrSize) > PosHeight(mmrSize-1) {
		return nil
	}

	peak := uint64(0)
	var peaks []uint64
	// The top peak is always the left most and, when counting from 1, will have all binary '1's
	for mmrSize != 0 {
		// This next step computes the ^2 floor of the bits in mmrSize, which
		// picks out the highest peak (and also left most) remaining peak in
		// mmrSize (See TopPeak)
		peakSize := TopPeak(mmrSize)

		// Because we *subtract* the computed peak size from mmrSize, we need to
		// recover the actual peak position. The arithmetic all works out so we
		// just accumulate the peakSizes as we go, and the result is always the
		// peak value against the original mmrSize we were given.
		peak = peak + peakSize
		peaks = append(peaks, peak)
		mmrSize -= peakSize
	}
	return peaks
}

// PeakHashes resolves Peaks(mmrSize) against store to produce the hashes a
// reference builder bags into a root — mmrtest.Builder is the store this is
// grounded on, indexing its in-memory node slice by the zero-based position
// (Peaks' one-based positions, minus one) PeakHashes subtracts for each
// lookup.
func PeakHashes(store indexStoreGetter, mmrSize uint64) ([][]byte, error) {
	// Note: we can implement this directly any time we want, but lets re-use the testing for Peaks
	var path [][]byte
	for _, pos := range Peaks(mmrSize) {
		stored, err := store.Get(pos - 1)
		if err != nil {
			return nil, err
		}

		value := make([]byte, len(stored))
		copy(value, stored)

		// Note: we create a copy here to ensure the value is not modified under the callers feet
		path = append(path, value)
	}
	return path, nil
}

// TopPeak returns the smallest, leftmost, peak containing *or equal to* pos
//
// This is essentially a ^2 *floor* function for the accumulation of bits:
//
//	TopPeak(1) = TopPeak(2) = 1
//	TopPeak(3) = TopPeak(4) = TopPeak(5) = TopPeak(6) = 3
//	TopPeak(7) = 7
//
//	2       7
//	      /   \
//	1    3     6    10
//	    / \  /  \   / \
//	0  1   2 4   5 8   9 11
//
// Peaks calls this to carve the largest remaining perfect subtree out of
// whatever's left of mmrSize; it is unrelated to position.go's
// peakPosByHeight, which instead starts from a height and returns the
// leftmost peak position of that height — the two meet in the middle inside
// newPeakCursor, which climbs peakPosByHeight one height at a time until it
// overshoots mmrSize.
func TopPeak(pos uint64) uint64 {

	// This works by working out the next peak up then subtracting 1, which is a
	// flooring function for the bits over the current peak
	return 1<<(BitLength64(pos+1)-1) - 1
}

// PeaksBitmap returns a bit mask where a 1 corresponds to a peak and the position
// of the bit is the height of that peak. The resulting value is also the count
// of leaves. This is due to the binary nature of the tree.
//
// For example, with an mmr with size 19, there are 11 leaves
//
//	          14
//	       /       \
//	     6          13
//	   /   \       /   \
//	  2     5     9     12     17
//	 / \   /  \  / \   /  \   /  \
//	0   1 3   4 7   8 10  11 15  16 18
//
// PeaksBitmap(19) returns 0b1011 which shows, reading from the right (low bit),
// there are peaks, that the lowest peak is at height 0, the second lowest at
// height 1, then the next and last peak is at height 3.
//
// If the provided mmr size is invalid, the returned map will be for the largest
// valid mmr size < the provided invalid size.
func PeaksBitmap(mmrSize uint64) uint64 {
	if mmrSize == 0 {
		return 0
	}
	pos := mmrSize
	// peakSize := uint64(math.MaxUint64) >> bits.LeadingZeros64(mmrSize)
	peakSize := (uint64(1) << bits.Len64(mmrSize)) - 1
	peakMap := uint64(0)
	for peakSize > 0 {
		peakMap <<= 1
		if pos >= peakSize {
			pos -= peakSize
			peakMap |= 1
		}
		peakSize >>= 1
	}
	return peakMap
}
