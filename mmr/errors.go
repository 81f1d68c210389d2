package mmr

import "errors"

// ErrorCode is the verifier's result type: zero means the proof verified,
// any other value is one of the fixed failure classes from spec §6. Codes
// start at 80 so they stay disjoint from error codes used by surrounding
// systems (the teacher's reference C header, original_source/c/ckb_mmr.h,
// starts its MMRErrorCode enum at the same value for the same reason).
type ErrorCode uint32

const (
	// OK is the zero value: the proof verified successfully.
	OK ErrorCode = 0

	CodeInvalidStack   ErrorCode = 80
	CodeInvalidCommand ErrorCode = 81
	CodeInvalidProof   ErrorCode = 82
	CodeProofEOF       ErrorCode = 83
	CodeLeafEOF        ErrorCode = 84
	CodeNoMoreLeafs    ErrorCode = 85
	CodeNoMoreCommands ErrorCode = 86
	CodeNodeEOF        ErrorCode = 87
)

var (
	// ErrInvalidStack: stack overflow or underflow.
	ErrInvalidStack = errors.New("mmr: invalid stack")
	// ErrInvalidCommand: an unknown command byte was read from the proof stream.
	ErrInvalidCommand = errors.New("mmr: invalid command")
	// ErrInvalidProof: any structural or semantic violation of the proof
	// (bad positions, mismatched siblings, wrong peak, residual leaves, root
	// mismatch, mmr_size == 0).
	ErrInvalidProof = errors.New("mmr: invalid proof")
	// ErrProofEOF: the proof stream ended where a command expected more bytes.
	ErrProofEOF = errors.New("mmr: proof stream exhausted")
	// ErrLeafEOF: the leaf stream ended mid-record.
	ErrLeafEOF = errors.New("mmr: leaf stream exhausted")
	// ErrNoMoreLeafs: a leaf was expected but the leaf stream had already
	// reached a clean end-of-stream boundary.
	ErrNoMoreLeafs = errors.New("mmr: no more leaves")
	// ErrNoMoreCommands: reserved for readers that distinguish "no more
	// commands" from a clean END; the default buffer reader folds this into
	// a normal loop exit (spec §4.C).
	ErrNoMoreCommands = errors.New("mmr: no more commands")
	// ErrNodeEOF: a length-prefixed node read ran past the end of its buffer.
	ErrNodeEOF = errors.New("mmr: node stream exhausted")
)

// codeErrors maps each ErrorCode to its sentinel error, and back, so
// callers can use either errors.Is or the raw numeric code (spec §6 and §7
// both matter to different consumers: library callers want errors.Is,
// on-chain/cross-language callers want the bare integer).
var codeErrors = map[ErrorCode]error{
	CodeInvalidStack:   ErrInvalidStack,
	CodeInvalidCommand: ErrInvalidCommand,
	CodeInvalidProof:   ErrInvalidProof,
	CodeProofEOF:       ErrProofEOF,
	CodeLeafEOF:        ErrLeafEOF,
	CodeNoMoreLeafs:    ErrNoMoreLeafs,
	CodeNoMoreCommands: ErrNoMoreCommands,
	CodeNodeEOF:        ErrNodeEOF,
}

var errorCodes = map[error]ErrorCode{
	ErrInvalidStack:   CodeInvalidStack,
	ErrInvalidCommand: CodeInvalidCommand,
	ErrInvalidProof:   CodeInvalidProof,
	ErrProofEOF:       CodeProofEOF,
	ErrLeafEOF:        CodeLeafEOF,
	ErrNoMoreLeafs:    CodeNoMoreLeafs,
	ErrNoMoreCommands: CodeNoMoreCommands,
	ErrNodeEOF:        CodeNodeEOF,
}

// Err returns the sentinel error for a non-zero code, or nil for OK.
func (c ErrorCode) Err() error {
	if c == OK {
		return nil
	}
	return codeErrors[c]
}

// Code returns the numeric wire-level code for err, or OK if err is nil.
// Unrecognized non-nil errors map to CodeInvalidProof, since every failure
// path inside this package returns one of the sentinels above.
func Code(err error) ErrorCode {
	if err == nil {
		return OK
	}
	for sentinel, code := range errorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeInvalidProof
}
