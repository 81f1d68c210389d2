// Package mmrtest builds small, fully in-memory MMRs and generates the exact
// command/leaf/proof streams mmr.VerifyInclusion consumes, so tests can
// exercise the verifier against a trusted reference implementation without
// ever building or updating the MMR through production code paths.
//
// Grounded on original_source/src/mmr.rs (MMR::push, calculate_peaks_hashes,
// calculate_peak_root, bagging_peaks_hashes) and
// original_source/src/compiled_proof.rs (compile_merkle_proof,
// emit_value_command), which together are the direct ancestor of the
// command vocabulary mmr.VerifyInclusion's stack machine consumes.
package mmrtest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/datatrails/go-datatrails-merklelog/mmr"
)

var (
	// ErrUnknownPosition is returned by GenerateProof when asked to prove a
	// position the builder never stored a node for.
	ErrUnknownPosition = errors.New("mmrtest: position not present in the mmr")

	// ErrLeavesUnsorted is returned by GenerateProof when the requested leaf
	// positions contain a duplicate.
	ErrLeavesUnsorted = errors.New("mmrtest: leaf positions must be unique")

	// ErrNodeProofNotSupported mirrors original_source/src/mmr.rs's
	// NodeProofsNotSupported: only leaves (height 0) may be proven.
	ErrNodeProofNotSupported = errors.New("mmrtest: only leaf positions can be proven")

	// errCorruptedProof signals an internal inconsistency in proof
	// construction; it should never surface from a correctly built mmr.
	errCorruptedProof = errors.New("mmrtest: corrupted proof construction")
)

// Builder is an in-memory reference MMR. It keeps every node it ever
// computes (not just the peaks), so it can serve as its own proof store:
// GenerateProof never needs a separately supplied proof vector the way
// original_source/src/mmr.rs's MMR::gen_proof does, because every sibling
// value a proof might need is already on hand.
type Builder struct {
	merger mmr.Merger
	nodes  map[uint64][]byte
	size   uint64
}

// NewBuilder constructs an empty MMR that merges leaves with merger.
func NewBuilder(merger mmr.Merger) *Builder {
	return &Builder{merger: merger, nodes: make(map[uint64][]byte)}
}

// Size returns the current mmr size (spec §3: one past the highest
// occupied position).
func (b *Builder) Size() uint64 {
	return b.size
}

// Node returns the raw stored value at pos, or nil if pos has never been
// written.
func (b *Builder) Node(pos uint64) []byte {
	return b.nodes[pos]
}

// Push appends a new leaf and eagerly performs every merge the new leaf
// completes, exactly mirroring original_source/src/mmr.rs's MMR::push. It
// returns the position assigned to the new leaf.
func (b *Builder) Push(leaf []byte) uint64 {
	pos := b.size
	leafPos := pos
	height := uint64(0)

	value := make([]byte, len(leaf))
	copy(value, leaf)
	b.nodes[pos] = value

	for mmr.PosHeight(pos+1) > height {
		pos++
		leftPos := pos - mmr.ParentOffset(height)
		rightPos := leftPos + mmr.SiblingOffset(height)
		merged := b.merger.MergeNode(mmr.BorrowedNode(b.nodes[leftPos]), mmr.BorrowedNode(b.nodes[rightPos]))
		b.nodes[pos] = append([]byte{}, merged.Value()...)
		height++
	}

	b.size = pos + 1
	return leafPos
}

// Get implements the store interface mmr.PeakHashes reads through, letting
// Root reuse the production one-based peak walk instead of maintaining its
// own copy of it.
func (b *Builder) Get(pos uint64) ([]byte, error) {
	v, ok := b.nodes[pos]
	if !ok {
		return nil, fmt.Errorf("mmrtest: no node stored at position %d", pos)
	}
	return v, nil
}

// Root bags the current peaks into a single root, mirroring
// original_source/src/mmr.rs's bagging_peaks_hashes: pairs are folded from
// the right-most peak leftward, which is also the order
// mmr.VerifyInclusion's repeated "bag two peaks" commands produce. The peak
// hashes themselves come from mmr.PeakHashes, so the builder and the
// production accumulator agree by construction on what a "peak" is.
func (b *Builder) Root() []byte {
	peakHashes, err := mmr.PeakHashes(b, b.size)
	if err != nil || len(peakHashes) == 0 {
		return nil
	}
	acc := append([]byte{}, peakHashes[len(peakHashes)-1]...)
	for i := len(peakHashes) - 2; i >= 0; i-- {
		merged := b.merger.MergePeak(mmr.BorrowedNode(acc), mmr.BorrowedNode(peakHashes[i]))
		acc = append([]byte{}, merged.Value()...)
	}
	return acc
}

// proofNode is a placeholder tree mirroring
// original_source/src/compiled_proof.rs's Value<T>: a leaf we intend to
// prove, a raw proof value pulled straight from the builder's store, or a
// merge of two such placeholders. Unlike Value<T> it carries real byte
// values throughout, since the builder already has them on hand.
type proofNode struct {
	pos         uint64
	isOurLeaf   bool
	value       []byte
	left, right *proofNode
}

// GenerateProof produces the proof stream, leaf stream, and expected root
// for an inclusion proof of the given leaf positions, in the exact wire
// format mmr.BufferReader / mmr.VerifyInclusion expect (spec §4.C, §6).
func (b *Builder) GenerateProof(leafPositions []uint64) (proofStream, leafStream, root []byte, err error) {
	sorted := append([]uint64{}, leafPositions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, pos := range sorted {
		if i > 0 && pos == sorted[i-1] {
			return nil, nil, nil, ErrLeavesUnsorted
		}
		if mmr.PosHeight(pos) > 0 {
			return nil, nil, nil, ErrNodeProofNotSupported
		}
		if pos >= b.size {
			return nil, nil, nil, ErrUnknownPosition
		}
	}

	peaks := zeroBasedPeaks(b.size)

	var peakNodes []*proofNode
	idx := 0
	for _, peakPos := range peaks {
		var sub []uint64
		for idx < len(sorted) && sorted[idx] <= peakPos {
			sub = append(sub, sorted[idx])
			idx++
		}
		switch {
		case len(sub) == 1 && sub[0] == peakPos:
			peakNodes = append(peakNodes, &proofNode{pos: peakPos, isOurLeaf: true, value: b.nodes[peakPos]})
		case len(sub) == 0:
			peakNodes = append(peakNodes, &proofNode{pos: peakPos, value: b.nodes[peakPos]})
		default:
			node, perr := b.calculatePeakRoot(sub, peakPos)
			if perr != nil {
				return nil, nil, nil, perr
			}
			peakNodes = append(peakNodes, node)
		}
	}

	var w commandWriter
	for _, pn := range peakNodes {
		emitTree(&w, pn)
		w.command(mmr.CommandMarkPeak)
	}
	for range peakNodes[1:] {
		w.command(mmr.CommandBagPeaks)
	}

	return w.proof, w.leaf, b.Root(), nil
}

// calculatePeakRoot mirrors original_source/src/mmr.rs's calculate_peak_root:
// a queue-driven walk up from a peak's leaves to the peak position itself,
// pulling each missing sibling straight from the builder's node store
// instead of from a separately supplied proof vector.
func (b *Builder) calculatePeakRoot(positions []uint64, peakPos uint64) (*proofNode, error) {
	type qitem struct {
		node   *proofNode
		pos    uint64
		height uint64
	}
	queue := make([]qitem, len(positions))
	for i, pos := range positions {
		queue[i] = qitem{node: &proofNode{pos: pos, isOurLeaf: true, value: b.nodes[pos]}, pos: pos, height: 0}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.pos == peakPos {
			if len(queue) != 0 {
				return nil, errCorruptedProof
			}
			return cur.node, nil
		}

		nextHeight := mmr.PosHeight(cur.pos + 1)
		sibOffset := mmr.SiblingOffset(cur.height)

		var parentPos uint64
		var parent *proofNode
		if nextHeight > cur.height {
			// cur is the right child.
			sibPos := cur.pos - sibOffset
			parentPos = cur.pos + 1
			var left *proofNode
			if len(queue) > 0 && queue[0].pos == sibPos {
				left = queue[0].node
				queue = queue[1:]
			} else {
				left = &proofNode{pos: sibPos, value: b.nodes[sibPos]}
			}
			parent = &proofNode{pos: parentPos, left: left, right: cur.node}
		} else {
			// cur is the left child.
			sibPos := cur.pos + sibOffset
			parentPos = cur.pos + mmr.ParentOffset(cur.height)
			var right *proofNode
			if len(queue) > 0 && queue[0].pos == sibPos {
				right = queue[0].node
				queue = queue[1:]
			} else {
				right = &proofNode{pos: sibPos, value: b.nodes[sibPos]}
			}
			parent = &proofNode{pos: parentPos, left: cur.node, right: right}
		}

		if parentPos > peakPos {
			return nil, errCorruptedProof
		}
		queue = append(queue, qitem{node: parent, pos: parentPos, height: cur.height + 1})
	}
	return nil, errCorruptedProof
}

// emitTree walks a proofNode in post order, emitting PushLeaf/PushProof
// commands for its leaves and a Merge command once both children of an
// internal node have been emitted — the same shape as
// original_source/src/compiled_proof.rs's emit_value_command.
func emitTree(w *commandWriter, n *proofNode) {
	if n.left == nil && n.right == nil {
		if n.isOurLeaf {
			w.pushLeaf(n.pos, n.value)
		} else {
			w.pushProof(n.value)
		}
		return
	}
	emitTree(w, n.left)
	emitTree(w, n.right)
	w.command(mmr.CommandMerge)
}

// commandWriter accumulates the two streams GenerateProof produces: the
// proof stream (commands interleaved with length-prefixed proof nodes,
// sharing one cursor per spec §4.C) and the leaf stream (position-prefixed
// leaf records, with no command bytes of its own).
type commandWriter struct {
	proof []byte
	leaf  []byte
}

func (w *commandWriter) command(cmd byte) {
	w.proof = append(w.proof, cmd)
}

func (w *commandWriter) pushLeaf(pos uint64, value []byte) {
	w.command(mmr.CommandPushLeaf)
	var posBuf [8]byte
	binary.LittleEndian.PutUint64(posBuf[:], pos)
	w.leaf = append(w.leaf, posBuf[:]...)
	w.leaf = appendProofNode(w.leaf, value)
}

func (w *commandWriter) pushProof(value []byte) {
	w.command(mmr.CommandPushProof)
	w.proof = appendProofNode(w.proof, value)
}

func appendProofNode(buf, value []byte) []byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(value)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, value...)
}

// zeroBasedPeaks lists the peak positions of an mmr of the given size, in
// ascending (left-to-right) order, using the zero-based position space
// mmr.VerifyInclusion's stack machine operates in. mmr.Peaks already walks
// exactly this tree; it returns one-based positions for its own
// store-indexing callers, so the only work left here is the base shift.
func zeroBasedPeaks(mmrSize uint64) []uint64 {
	onebased := mmr.Peaks(mmrSize)
	if len(onebased) == 0 {
		return nil
	}
	peaks := make([]uint64, len(onebased))
	for i, p := range onebased {
		peaks[i] = p - 1
	}
	return peaks
}
