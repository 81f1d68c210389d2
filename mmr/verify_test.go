package mmr

import (
	"encoding/binary"
	"testing"
)

func testMerger() Merger {
	return NewBlake2bMerger(DefaultPersonal)
}

func leafBytes(s string) []byte {
	b := make([]byte, 32)
	copy(b, s)
	return b
}

func appendProofNodeBytes(buf, value []byte) []byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(value)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, value...)
}

func appendLeafBytes(buf []byte, pos uint64, value []byte) []byte {
	var posBuf [8]byte
	binary.LittleEndian.PutUint64(posBuf[:], pos)
	buf = append(buf, posBuf[:]...)
	return appendProofNodeBytes(buf, value)
}

// TestVerifyInclusionSingleLeafMMR exercises the degenerate one-leaf mmr: a
// single PushLeaf, MarkPeak, no Merge or BagPeaks, and the root equal to the
// leaf itself.
func TestVerifyInclusionSingleLeafMMR(t *testing.T) {
	leaf := leafBytes("only leaf")
	var proof []byte
	proof = append(proof, CommandPushLeaf)
	proof = append(proof, CommandMarkPeak)

	leafStream := appendLeafBytes(nil, 0, leaf)

	err := VerifyInclusion(leaf, 1, NewBufferReader(proof), NewBufferReader(leafStream), testMerger())
	if err != nil {
		t.Fatalf("VerifyInclusion() = %v, want nil", err)
	}
}

// TestVerifyInclusionTwoLeafMMR builds the size-3 mmr by hand (two leaves at
// 0 and 1, merged into the peak at 2) and proves leaf 0.
func TestVerifyInclusionTwoLeafMMR(t *testing.T) {
	merger := testMerger()
	leaf0 := leafBytes("leaf-0")
	leaf1 := leafBytes("leaf-1")
	root := merger.MergeNode(BorrowedNode(leaf0), BorrowedNode(leaf1)).Value()

	var proof []byte
	proof = append(proof, CommandPushLeaf)
	proof = append(proof, CommandPushProof)
	proof = appendProofNodeBytes(proof, leaf1)
	proof = append(proof, CommandMerge)
	proof = append(proof, CommandMarkPeak)

	leafStream := appendLeafBytes(nil, 0, leaf0)

	err := VerifyInclusion(root, 3, NewBufferReader(proof), NewBufferReader(leafStream), testMerger())
	if err != nil {
		t.Fatalf("VerifyInclusion() = %v, want nil", err)
	}
}

// TestVerifyInclusionRejectsWrongRoot checks byte-for-byte root comparison.
func TestVerifyInclusionRejectsWrongRoot(t *testing.T) {
	leaf := leafBytes("only leaf")
	var proof []byte
	proof = append(proof, CommandPushLeaf)
	proof = append(proof, CommandMarkPeak)
	leafStream := appendLeafBytes(nil, 0, leaf)

	wrongRoot := leafBytes("not the leaf")
	err := VerifyInclusion(wrongRoot, 1, NewBufferReader(proof), NewBufferReader(leafStream), testMerger())
	if err != ErrInvalidProof {
		t.Fatalf("VerifyInclusion() = %v, want ErrInvalidProof", err)
	}
}

// TestVerifyInclusionRejectsEmptyMMR checks the mmrSize == 0 special case.
func TestVerifyInclusionRejectsEmptyMMR(t *testing.T) {
	err := VerifyInclusion(nil, 0, NewBufferReader(nil), NewBufferReader(nil), testMerger())
	if err != ErrInvalidProof {
		t.Fatalf("VerifyInclusion() = %v, want ErrInvalidProof", err)
	}
}

// TestVerifyInclusionRejectsUnmarkedPeak checks that a stack left with more
// than one entry (a forgotten MarkPeak/BagPeaks) is rejected.
func TestVerifyInclusionRejectsUnmarkedPeak(t *testing.T) {
	leaf0 := leafBytes("leaf-0")
	leaf1 := leafBytes("leaf-1")

	var proof []byte
	proof = append(proof, CommandPushLeaf)
	proof = append(proof, CommandPushProof)
	proof = appendProofNodeBytes(proof, leaf1)
	// Missing CommandMerge and CommandMarkPeak: stack ends with 2 entries.

	leafStream := appendLeafBytes(nil, 0, leaf0)

	err := VerifyInclusion(leaf0, 3, NewBufferReader(proof), NewBufferReader(leafStream), testMerger())
	if err != ErrInvalidProof {
		t.Fatalf("VerifyInclusion() = %v, want ErrInvalidProof", err)
	}
}

// TestVerifyInclusionRejectsResidualLeaf checks that extra unconsumed bytes
// in the leaf stream cause rejection even when the proof stream alone would
// verify correctly.
func TestVerifyInclusionRejectsResidualLeaf(t *testing.T) {
	leaf := leafBytes("only leaf")
	var proof []byte
	proof = append(proof, CommandPushLeaf)
	proof = append(proof, CommandMarkPeak)

	leafStream := appendLeafBytes(nil, 0, leaf)
	leafStream = appendLeafBytes(leafStream, 99, leafBytes("uninvited"))

	err := VerifyInclusion(leaf, 1, NewBufferReader(proof), NewBufferReader(leafStream), testMerger())
	if err != ErrInvalidProof {
		t.Fatalf("VerifyInclusion() = %v, want ErrInvalidProof", err)
	}
}

// TestVerifyInclusionRejectsOutOfRangeLeaf checks a leaf position >= mmrSize
// is rejected by pushLeaf.
func TestVerifyInclusionRejectsOutOfRangeLeaf(t *testing.T) {
	leaf := leafBytes("only leaf")
	var proof []byte
	proof = append(proof, CommandPushLeaf)
	proof = append(proof, CommandMarkPeak)
	leafStream := appendLeafBytes(nil, 5, leaf)

	err := VerifyInclusion(leaf, 1, NewBufferReader(proof), NewBufferReader(leafStream), testMerger())
	if err != ErrInvalidProof {
		t.Fatalf("VerifyInclusion() = %v, want ErrInvalidProof", err)
	}
}

// TestVerifyInclusionRejectsNonAscendingLeaves checks that leaves pushed out
// of ascending-position order are rejected.
func TestVerifyInclusionRejectsNonAscendingLeaves(t *testing.T) {
	leaf0 := leafBytes("leaf-0")
	leaf3 := leafBytes("leaf-3")

	var proof []byte
	proof = append(proof, CommandPushLeaf)
	proof = append(proof, CommandPushLeaf)

	var leafStream []byte
	leafStream = appendLeafBytes(leafStream, 3, leaf3)
	leafStream = appendLeafBytes(leafStream, 0, leaf0)

	err := VerifyInclusion(nil, 7, NewBufferReader(proof), NewBufferReader(leafStream), testMerger())
	if err != ErrInvalidProof {
		t.Fatalf("VerifyInclusion() = %v, want ErrInvalidProof", err)
	}
}

// TestVerifyInclusionRejectsWrongPeakCount pins the soundness fix described
// in DESIGN.md's "Soundness fix" section: Peaks(3) and Peaks(4) share the
// same first (and, for size 3, only) peak position, so a single-peak proof
// honestly generated for mmrSize 3 still lands its lone MarkPeak on a real
// peak of a claimed mmrSize of 4, and its one surviving stack entry still
// equals the (size-3) root supplied. Only comparing the number of marked
// peaks against len(Peaks(mmrSize)) catches that the claim silently drops
// the second peak a real size-4 mmr would have.
func TestVerifyInclusionRejectsWrongPeakCount(t *testing.T) {
	merger := testMerger()
	leaf0 := leafBytes("leaf-0")
	leaf1 := leafBytes("leaf-1")
	root := merger.MergeNode(BorrowedNode(leaf0), BorrowedNode(leaf1)).Value()

	var proof []byte
	proof = append(proof, CommandPushLeaf)
	proof = append(proof, CommandPushProof)
	proof = appendProofNodeBytes(proof, leaf1)
	proof = append(proof, CommandMerge)
	proof = append(proof, CommandMarkPeak)

	leafStream := appendLeafBytes(nil, 0, leaf0)

	err := VerifyInclusion(root, 4, NewBufferReader(proof), NewBufferReader(leafStream), testMerger())
	if err != ErrInvalidProof {
		t.Fatalf("VerifyInclusion() = %v, want ErrInvalidProof", err)
	}
}

// TestVerifyInclusionRejectsStackOverflow crafts a proof stream that pushes
// more than StackCapacity entries and checks VerifyInclusion returns
// ErrInvalidStack rather than overflowing stack's fixed-size entries array
// (spec §8 "Stack bound"). mmrSize is set far larger than the push count so
// neither pushLeaf's range check nor mergeTop ever triggers first; every
// pushed command is PushProof, since that is the cheapest way to grow the
// stack without needing position-accurate leaves.
func TestVerifyInclusionRejectsStackOverflow(t *testing.T) {
	var proof []byte
	for i := 0; i < StackCapacity+1; i++ {
		proof = append(proof, CommandPushProof)
		proof = appendProofNodeBytes(proof, leafBytes("overflow"))
	}

	err := VerifyInclusion(nil, 1<<40, NewBufferReader(proof), NewBufferReader(nil), testMerger())
	if err != ErrInvalidStack {
		t.Fatalf("VerifyInclusion() = %v, want ErrInvalidStack", err)
	}
}

// TestVerifyInclusionRejectsUnknownCommand checks a command byte outside
// 1..5 is rejected. BufferReader reports the end of the stream with
// ok == false, so the unknown byte is the only thing that can stop it here.
func TestVerifyInclusionRejectsUnknownCommand(t *testing.T) {
	proof := []byte{42}
	err := VerifyInclusion(nil, 1, NewBufferReader(proof), NewBufferReader(nil), testMerger())
	if err != ErrInvalidCommand {
		t.Fatalf("VerifyInclusion() = %v, want ErrInvalidCommand", err)
	}
}

// TestBagPeaksArgumentOrder pins down the on-wire contract that BagPeaks
// merges with the top-of-stack entry as the first (left) argument and the
// second entry as the second (right) argument: a recording Merger captures
// the exact arguments bagPeaks passes to MergePeak and each is compared
// against the entry expected in that slot.
func TestBagPeaksArgumentOrder(t *testing.T) {
	top := OwnedNode(leafBytes("top"))
	second := OwnedNode(leafBytes("second"))

	var st stack
	if err := st.push(stackEntry{kind: kindPeak, node: second}); err != nil {
		t.Fatal(err)
	}
	if err := st.push(stackEntry{kind: kindPeak, node: top}); err != nil {
		t.Fatal(err)
	}

	var gotLHS, gotRHS Node
	recorder := recordingMerger{
		onMergePeak: func(lhs, rhs Node) { gotLHS, gotRHS = lhs, rhs },
	}

	if err := bagPeaks(&st, recorder); err != nil {
		t.Fatal(err)
	}
	if !bytesEqual(gotLHS.Value(), top.Value()) {
		t.Errorf("MergePeak lhs = %x, want top-of-stack %x", gotLHS.Value(), top.Value())
	}
	if !bytesEqual(gotRHS.Value(), second.Value()) {
		t.Errorf("MergePeak rhs = %x, want second-from-top %x", gotRHS.Value(), second.Value())
	}
}

type recordingMerger struct {
	onMergePeak func(lhs, rhs Node)
}

func (m recordingMerger) MergeNode(lhs, rhs Node) Node {
	return testMerger().MergeNode(lhs, rhs)
}

func (m recordingMerger) MergePeak(lhs, rhs Node) Node {
	if m.onMergePeak != nil {
		m.onMergePeak(lhs, rhs)
	}
	return testMerger().MergePeak(lhs, rhs)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
