package mmrblobs

// A proof bundle delivered to a verifier (root statement, proof stream, leaf
// stream, see spec.md §3.3) is prefixed with a small fixed header so a
// consumer can sanity check the bundle before handing its streams to
// mmr.VerifyInclusion. The header is trie-key compatible in the same spirit as the
// teacher's massif blob header: a big-endian fixed-width record, safe to use
// as a sort/comparison key.
//
// .         | type| <reserved>|   version|  mmr size            |
// .         | 0   |           |   1 -  2 |  3  - 10             |
// bytes     | 1   |           |       2  |        8             |

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/datatrails/go-datatrails-merklelog/mmr"
)

type KeyType uint8

const (
	// KeyTypeBundleHeader is the type byte for a bundle header record.
	KeyTypeBundleHeader KeyType = 1
)

const (
	BundleHeaderBytes = 32

	bundleHeaderVersionFirstByte = 1
	bundleHeaderVersionSize      = 2
	bundleHeaderVersionEnd       = bundleHeaderVersionFirstByte + bundleHeaderVersionSize

	bundleHeaderMMRSizeFirstByte = bundleHeaderVersionEnd
	bundleHeaderMMRSizeSize      = 8
	bundleHeaderMMRSizeEnd       = bundleHeaderMMRSizeFirstByte + bundleHeaderMMRSizeSize

	BundleHeaderCurrentVersion = uint16(0)
)

var (
	ErrBundleHeaderMissing    = errors.New("the fixed header for the bundle is missing")
	ErrBundleHeaderBadType    = errors.New("the fixed header for the bundle has the wrong type code")
	ErrBundleHeaderTooSmall   = errors.New("too few bytes to hold a bundle header")
	ErrBundleHeaderBadMMRSize = errors.New("the fixed header for the bundle has an mmr size with no valid peak decomposition")
)

// BundleHeader is the fixed-size prefix of an on-disk or blob-stored proof
// bundle.
type BundleHeader struct {
	Version uint16
	MMRSize uint64
}

func NewBundleHeader(mmrSize uint64) BundleHeader {
	return BundleHeader{Version: BundleHeaderCurrentVersion, MMRSize: mmrSize}
}

func (h BundleHeader) MarshalBinary() ([]byte, error) {
	return EncodeBundleHeader(h.Version, h.MMRSize), nil
}

func (h *BundleHeader) UnmarshalBinary(b []byte) error {
	return DecodeBundleHeader(h, b)
}

// EncodeBundleHeader encodes the bundle header record.
func EncodeBundleHeader(version uint16, mmrSize uint64) []byte {
	key := make([]byte, BundleHeaderBytes)
	key[0] = byte(KeyTypeBundleHeader)
	binary.BigEndian.PutUint16(key[bundleHeaderVersionFirstByte:bundleHeaderVersionEnd], version)
	binary.BigEndian.PutUint64(key[bundleHeaderMMRSizeFirstByte:bundleHeaderMMRSizeEnd], mmrSize)
	return key
}

// DecodeBundleHeader is the inverse of EncodeBundleHeader. It rejects an mmr
// size that has no valid peak decomposition before the caller ever reaches
// mmr.VerifyInclusion, since mmr.Peaks is the authoritative definition of what a
// valid mmr size is.
func DecodeBundleHeader(h *BundleHeader, b []byte) error {
	if len(b) < BundleHeaderBytes {
		return ErrBundleHeaderTooSmall
	}
	if KeyType(b[0]) != KeyTypeBundleHeader {
		return fmt.Errorf("%w: %d", ErrBundleHeaderBadType, b[0])
	}
	mmrSize := binary.BigEndian.Uint64(b[bundleHeaderMMRSizeFirstByte:bundleHeaderMMRSizeEnd])
	if mmrSize != 0 && mmr.Peaks(mmrSize) == nil {
		return fmt.Errorf("%w: %d", ErrBundleHeaderBadMMRSize, mmrSize)
	}
	h.Version = binary.BigEndian.Uint16(b[bundleHeaderVersionFirstByte:bundleHeaderVersionEnd])
	h.MMRSize = mmrSize
	return nil
}

// LeafCount returns the number of leaves committed by this header's mmr
// size.
func (h BundleHeader) LeafCount() uint64 {
	return mmr.LeafCount(h.MMRSize)
}
