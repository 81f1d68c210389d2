package mmr

// nodeMaxInlineBytes is the capacity of the inline buffer variant of Node.
// 32 bytes covers every hash this verifier deals with; callers using a
// larger digest must rely on the borrowed variant instead.
const nodeMaxInlineBytes = 32

// Node is a uniform, read-only view over a hash value that is either owned
// (produced by a merge, copied into an inline buffer) or borrowed (a slice
// into a proof or leaf buffer supplied by the caller). Both variants expose
// the same (bytes, length) view so the verification VM never needs to know
// which one it is holding.
//
// A borrowed Node's backing storage must outlive every stack entry that
// refers to it; in practice that means the lifetime of a single
// VerifyInclusion call, since the proof and leaf buffers are supplied by the caller for the
// duration of that call.
type Node struct {
	inline [nodeMaxInlineBytes]byte
	slice  []byte
	length int
	owned  bool
}

// BorrowedNode wraps a slice read directly from a proof or leaf buffer. The
// returned Node does not copy b.
func BorrowedNode(b []byte) Node {
	return Node{slice: b, length: len(b)}
}

// OwnedNode copies b into a Node's inline buffer. Panics if b is longer than
// the inline capacity; merge results are always exactly 32 bytes so this
// never fires on the verifier's own write path.
func OwnedNode(b []byte) Node {
	if len(b) > nodeMaxInlineBytes {
		panic("mmr: owned node value exceeds inline capacity")
	}
	n := Node{length: len(b), owned: true}
	copy(n.inline[:], b)
	return n
}

// Value returns a read-only view of the node's bytes.
func (n Node) Value() []byte {
	if n.owned {
		return n.inline[:n.length]
	}
	return n.slice
}

// Len returns the byte length of the node's value.
func (n Node) Len() int {
	return n.length
}
