package mmrtest

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/datatrails/go-datatrails-merklelog/mmr"
	"github.com/stretchr/testify/require"
)

func merger() mmr.Merger {
	return mmr.NewBlake2bMerger(mmr.DefaultPersonal)
}

func leafValue(i int) []byte {
	return []byte(fmt.Sprintf("leaf-%03d", i))
}

// TestRoundTrip proves every leaf of mmrs built from 1 up to 40 pushes and
// checks mmr.VerifyInclusion accepts every one of them.
func TestRoundTrip(t *testing.T) {
	for n := 1; n <= 40; n++ {
		n := n
		t.Run(fmt.Sprintf("%d leaves", n), func(t *testing.T) {
			b := NewBuilder(merger())
			positions := make([]uint64, 0, n)
			for i := 0; i < n; i++ {
				positions = append(positions, b.Push(leafValue(i)))
			}
			root := b.Root()

			for _, pos := range positions {
				proofStream, leafStream, gotRoot, err := b.GenerateProof([]uint64{pos})
				require.NoError(t, err)
				require.True(t, bytes.Equal(root, gotRoot))

				err = mmr.VerifyInclusion(
					root, b.Size(),
					mmr.NewBufferReader(proofStream),
					mmr.NewBufferReader(leafStream),
					merger(),
				)
				require.NoError(t, err, "leaf at position %d failed to verify in an mmr of size %d", pos, b.Size())
			}
		})
	}
}

// TestRoundTripMultiLeaf proves several leaves at once out of the same
// peak and out of different peaks in a single call.
func TestRoundTripMultiLeaf(t *testing.T) {
	b := NewBuilder(merger())
	positions := make([]uint64, 0, 11)
	for i := 0; i < 11; i++ {
		positions = append(positions, b.Push(leafValue(i)))
	}
	root := b.Root()

	cases := [][]uint64{
		{positions[0], positions[1]},
		{positions[0], positions[len(positions)-1]},
		positions,
	}
	for _, pos := range cases {
		proofStream, leafStream, gotRoot, err := b.GenerateProof(pos)
		require.NoError(t, err)
		require.True(t, bytes.Equal(root, gotRoot))

		err = mmr.VerifyInclusion(
			root, b.Size(),
			mmr.NewBufferReader(proofStream),
			mmr.NewBufferReader(leafStream),
			merger(),
		)
		require.NoError(t, err)
	}
}

// TestSoundnessTamperedRoot proves that a proof which verifies against the
// true root is rejected once the root is changed.
func TestSoundnessTamperedRoot(t *testing.T) {
	b := NewBuilder(merger())
	for i := 0; i < 7; i++ {
		b.Push(leafValue(i))
	}
	root := b.Root()
	proofStream, leafStream, _, err := b.GenerateProof([]uint64{0})
	require.NoError(t, err)

	tampered := append([]byte{}, root...)
	tampered[0] ^= 0xFF

	err = mmr.VerifyInclusion(
		tampered, b.Size(),
		mmr.NewBufferReader(proofStream),
		mmr.NewBufferReader(leafStream),
		merger(),
	)
	require.ErrorIs(t, err, mmr.ErrInvalidProof)
}

// TestSoundnessTamperedLeaf proves that substituting a different leaf value
// for the position being proven is rejected.
func TestSoundnessTamperedLeaf(t *testing.T) {
	b := NewBuilder(merger())
	for i := 0; i < 7; i++ {
		b.Push(leafValue(i))
	}
	root := b.Root()
	proofStream, leafStream, _, err := b.GenerateProof([]uint64{3})
	require.NoError(t, err)

	// Corrupt the leaf payload bytes in the leaf stream (after the 8-byte
	// position and 2-byte length prefix).
	tampered := append([]byte{}, leafStream...)
	tampered[10] ^= 0xFF

	err = mmr.VerifyInclusion(
		root, b.Size(),
		mmr.NewBufferReader(proofStream),
		mmr.NewBufferReader(tampered),
		merger(),
	)
	require.ErrorIs(t, err, mmr.ErrInvalidProof)
}

// TestSoundnessTamperedProofNode proves that flipping a byte inside a
// PushProof payload is rejected, even though the leaf stream and claimed
// root are untouched.
func TestSoundnessTamperedProofNode(t *testing.T) {
	b := NewBuilder(merger())
	for i := 0; i < 7; i++ {
		b.Push(leafValue(i))
	}
	root := b.Root()
	proofStream, leafStream, _, err := b.GenerateProof([]uint64{0})
	require.NoError(t, err)

	tampered := append([]byte{}, proofStream...)
	flipped := false
	for i := 0; i < len(tampered); {
		cmd := tampered[i]
		i++
		if cmd != mmr.CommandPushProof {
			continue
		}
		i += 2 // length prefix
		tampered[i] ^= 0xFF
		flipped = true
		break
	}
	require.True(t, flipped, "expected at least one PushProof command in the proof stream")

	err = mmr.VerifyInclusion(
		root, b.Size(),
		mmr.NewBufferReader(tampered),
		mmr.NewBufferReader(leafStream),
		merger(),
	)
	require.ErrorIs(t, err, mmr.ErrInvalidProof)
}

// TestSoundnessSwappedLeafOrder proves that two leaf records delivered in
// the wrong order are rejected, even though both records are individually
// correct and the proof stream is untouched.
func TestSoundnessSwappedLeafOrder(t *testing.T) {
	b := NewBuilder(merger())
	for i := 0; i < 7; i++ {
		b.Push(leafValue(i))
	}
	root := b.Root()
	proofStream, leafStream, _, err := b.GenerateProof([]uint64{0, 1})
	require.NoError(t, err)
	require.Equal(t, 36, len(leafStream), "expected two fixed-size 18-byte leaf records")

	swapped := append([]byte{}, leafStream[18:]...)
	swapped = append(swapped, leafStream[:18]...)

	err = mmr.VerifyInclusion(
		root, b.Size(),
		mmr.NewBufferReader(proofStream),
		mmr.NewBufferReader(swapped),
		merger(),
	)
	require.ErrorIs(t, err, mmr.ErrInvalidProof)
}

// TestSoundnessTruncatedProofStream proves that cutting the proof stream
// mid-proof, after a PushProof length prefix has been read but before all
// of its value bytes arrive, is rejected with ErrNodeEOF rather than
// silently treated as end of stream.
func TestSoundnessTruncatedProofStream(t *testing.T) {
	b := NewBuilder(merger())
	b.Push(leafValue(0))
	b.Push(leafValue(1))
	root := b.Root()
	proofStream, leafStream, _, err := b.GenerateProof([]uint64{0})
	require.NoError(t, err)

	// proofStream is [PushLeaf, PushProof, lenLo, lenHi, value(8 bytes),
	// Merge, MarkPeak]; cut after the length prefix but only 4 of the 8
	// value bytes in.
	truncated := proofStream[:8]

	err = mmr.VerifyInclusion(
		root, b.Size(),
		mmr.NewBufferReader(truncated),
		mmr.NewBufferReader(leafStream),
		merger(),
	)
	require.ErrorIs(t, err, mmr.ErrNodeEOF)
}

// TestSoundnessWrongMMRSizeRejected proves that a valid proof generated for
// the builder's true size is rejected when replayed against a claimed size
// one more or one less than the true size, even though every other input
// (streams, root) is untouched. See DESIGN.md's "Soundness fix" section for
// why this needs VerifyInclusion to count marked peaks against
// mmr.Peaks(mmrSize), not just check that one stack entry remains.
func TestSoundnessWrongMMRSizeRejected(t *testing.T) {
	b := NewBuilder(merger())
	for i := 0; i < 7; i++ {
		b.Push(leafValue(i))
	}
	root := b.Root()
	proofStream, leafStream, _, err := b.GenerateProof([]uint64{0})
	require.NoError(t, err)

	for _, claimedSize := range []uint64{b.Size() - 1, b.Size() + 1} {
		claimedSize := claimedSize
		t.Run(fmt.Sprintf("claimed size %d", claimedSize), func(t *testing.T) {
			err := mmr.VerifyInclusion(
				root, claimedSize,
				mmr.NewBufferReader(append([]byte{}, proofStream...)),
				mmr.NewBufferReader(append([]byte{}, leafStream...)),
				merger(),
			)
			require.ErrorIs(t, err, mmr.ErrInvalidProof)
		})
	}
}

// TestEmptyMMRRejected matches spec §4.A's special case: size 0 is always
// rejected outright.
func TestEmptyMMRRejected(t *testing.T) {
	err := mmr.VerifyInclusion(
		[]byte{1, 2, 3}, 0,
		mmr.NewBufferReader(nil),
		mmr.NewBufferReader(nil),
		merger(),
	)
	require.ErrorIs(t, err, mmr.ErrInvalidProof)
}

// TestResidualLeafStreamRejected checks that an extra, unconsumed leaf
// record in the leaf stream causes rejection even though the proof stream
// alone would otherwise verify.
func TestResidualLeafStreamRejected(t *testing.T) {
	b := NewBuilder(merger())
	for i := 0; i < 3; i++ {
		b.Push(leafValue(i))
	}
	root := b.Root()
	proofStream, leafStream, _, err := b.GenerateProof([]uint64{0})
	require.NoError(t, err)

	extra := NewBuilder(merger())
	extra.Push(leafValue(99))
	_, extraLeafStream, _, err := extra.GenerateProof([]uint64{0})
	require.NoError(t, err)

	err = mmr.VerifyInclusion(
		root, b.Size(),
		mmr.NewBufferReader(proofStream),
		mmr.NewBufferReader(append(append([]byte{}, leafStream...), extraLeafStream...)),
		merger(),
	)
	require.ErrorIs(t, err, mmr.ErrInvalidProof)
}

// TestUnknownPositionRejected checks GenerateProof itself refuses a
// position that was never pushed.
func TestUnknownPositionRejected(t *testing.T) {
	b := NewBuilder(merger())
	b.Push(leafValue(0))
	_, _, _, err := b.GenerateProof([]uint64{41})
	require.ErrorIs(t, err, ErrUnknownPosition)
}

// TestDuplicatePositionsRejected checks GenerateProof refuses duplicate
// leaf positions in a single request.
func TestDuplicatePositionsRejected(t *testing.T) {
	b := NewBuilder(merger())
	for i := 0; i < 3; i++ {
		b.Push(leafValue(i))
	}
	_, _, _, err := b.GenerateProof([]uint64{0, 0})
	require.ErrorIs(t, err, ErrLeavesUnsorted)
}
