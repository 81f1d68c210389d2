package mmr

// LeafCount returns the number of leaves in the largest mmr whose size is <=
// the supplied size. See also PeaksBitmap.
func LeafCount(size uint64) uint64 {
	return PeaksBitmap(size)
}
