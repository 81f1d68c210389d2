package mmr

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// debug utilities

// commandName renders a single command byte the way FormatProofStream does,
// grounded on original_source/src/mmr.rs's Display impl for
// MerklePostfixProof (which renders its MergeOp token as "TOP#SEC" /
// "SEC#TOP" depending on stack order). This VM's Merge command carries no
// such direction bit of its own — mergeTop works it out from the stack
// contents at run time — so it always prints plainly as "MERGE".
func commandName(cmd byte) string {
	switch cmd {
	case CommandPushLeaf:
		return "LEAF"
	case CommandPushProof:
		return "PROOF"
	case CommandMerge:
		return "MERGE"
	case CommandBagPeaks:
		return "BAG"
	case CommandMarkPeak:
		return "MARK"
	default:
		return fmt.Sprintf("CMD(%d)", cmd)
	}
}

// FormatProofStream decodes and renders a proof stream for diagnostics: each
// command token followed by the proof node it consumes, if any, as a hex
// string. It never mutates the input and tolerates a truncated tail by
// reporting it rather than panicking, so it is safe to call on streams that
// failed verification.
func FormatProofStream(proofStream []byte) string {
	r := NewBufferReader(proofStream)
	var tokens []string
	for {
		cmd, ok, err := r.ReadCommand()
		if err != nil {
			tokens = append(tokens, fmt.Sprintf("<err:%v>", err))
			break
		}
		if !ok {
			break
		}
		tokens = append(tokens, commandName(cmd))
		if cmd == CommandPushProof {
			node, err := r.ReadProofNode()
			if err != nil {
				tokens = append(tokens, fmt.Sprintf("<err:%v>", err))
				break
			}
			tokens = append(tokens, hex.EncodeToString(node.Value()))
		}
	}
	return strings.Join(tokens, " ")
}

// FormatLeafStream decodes and renders a leaf stream for diagnostics: each
// leaf's position and value, one per line.
func FormatLeafStream(leafStream []byte) string {
	r := NewBufferReader(leafStream)
	var lines []string
	for {
		pos, node, ok, err := r.ReadLeaf()
		if err != nil {
			lines = append(lines, fmt.Sprintf("<err:%v>", err))
			break
		}
		if !ok {
			break
		}
		lines = append(lines, fmt.Sprintf("%d:%s", pos, hex.EncodeToString(node.Value())))
	}
	return strings.Join(lines, "\n")
}

