package mmr

import "encoding/binary"

// CommandEOF is a command value outside the recognized set. CommandReader
// does not return it: a cleanly exhausted proof stream is reported with
// ok == false, and a 0xFF byte inside the stream is read as an ordinary
// (unknown) command.
const CommandEOF = 0xFF

// CommandReader pulls the next command byte from the proof stream.
type CommandReader interface {
	ReadCommand() (byte, bool, error)
}

// ProofNodeReader pulls the next length-prefixed proof node from the proof
// stream, sharing its cursor with the CommandReader in the default
// deployment (spec §4.C, §6).
type ProofNodeReader interface {
	ReadProofNode() (Node, error)
}

// LeafReader pulls the next leaf record (position + payload) from the leaf
// stream.
type LeafReader interface {
	// ReadLeaf returns ok == false when the stream is already at a clean
	// end-of-stream boundary (spec §4.C "Returns END when the stream is
	// already at EOF before the position").
	ReadLeaf() (pos uint64, node Node, ok bool, err error)
}

// ProofReader bundles the command and proof-node readers that the
// verification VM drives off a single cursor.
type ProofReader interface {
	CommandReader
	ProofNodeReader
}

// BufferReader is the default in-memory implementation of ProofReader and
// LeafReader, reading length-prefixed records from a byte slice (spec §4.C,
// §6). The proof stream and the leaf stream are each served by an
// independent BufferReader instance sharing nothing but their shape — this
// mirrors original_source/c/ckb_mmr.h's mmr_default_buffer_reader_t, which
// is reused, with separate instances, for both streams.
type BufferReader struct {
	buf []byte
	pos int
}

// NewBufferReader wraps buf for sequential reading from offset 0.
func NewBufferReader(buf []byte) *BufferReader {
	return &BufferReader{buf: buf}
}

// ReadCommand implements CommandReader.
func (r *BufferReader) ReadCommand() (byte, bool, error) {
	if r.pos >= len(r.buf) {
		return 0, false, nil
	}
	b := r.buf[r.pos]
	r.pos++
	return b, true, nil
}

// ReadProofNode implements ProofNodeReader: a 2-byte little-endian length
// prefix followed by that many bytes, returned as a borrowed Node.
func (r *BufferReader) ReadProofNode() (Node, error) {
	if len(r.buf)-r.pos < 2 {
		return Node{}, ErrNodeEOF
	}
	n := binary.LittleEndian.Uint16(r.buf[r.pos : r.pos+2])
	if len(r.buf)-r.pos-2 < int(n) {
		return Node{}, ErrNodeEOF
	}
	start := r.pos + 2
	r.pos += 2 + int(n)
	return BorrowedNode(r.buf[start : start+int(n)]), nil
}

// ReadLeaf implements LeafReader: an 8-byte little-endian position followed
// by a length-prefixed payload (spec §4.C, §6).
func (r *BufferReader) ReadLeaf() (uint64, Node, bool, error) {
	if r.pos >= len(r.buf) {
		return 0, Node{}, false, nil
	}
	if len(r.buf)-r.pos < 8 {
		return 0, Node{}, false, ErrLeafEOF
	}
	pos := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8

	node, err := r.ReadProofNode()
	if err != nil {
		return 0, Node{}, false, err
	}
	return pos, node, true, nil
}

// Remaining reports how many bytes the reader has not yet consumed. The VM's
// "residual leaves" termination check does not use it; it issues a final
// ReadLeaf instead.
func (r *BufferReader) Remaining() int {
	return len(r.buf) - r.pos
}
