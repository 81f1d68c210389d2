package mmrblobs

import (
	"encoding/binary"
	"errors"

	"github.com/google/uuid"
)

// LeafRecord is the reference deployment's 48-byte leaf payload: the event
// and asset identifiers plus a snowflake ID that orders leaves independently
// of their MMR position. mmr.VerifyInclusion treats this payload as an opaque,
// length-prefixed blob (spec.md §4.C); this codec is for callers that built
// the log and know its shape.
const (
	LeafRecordBytes = 48

	eventIDFirst     = 0
	eventIDEnd       = eventIDFirst + 16
	snowflakeIDFirst = 24
	snowflakeIDEnd   = snowflakeIDFirst + 8
	assetIDFirst     = snowflakeIDEnd
	assetIDEnd       = assetIDFirst + 16
)

var ErrLeafRecordBadSize = errors.New("leaf record size invalid")

// EmptyLeafRecord is a convenience for tests that don't require a valid record.
func EmptyLeafRecord() []byte {
	return make([]byte, LeafRecordBytes)
}

// NewLeafRecord encodes a leaf record from its components.
func NewLeafRecord(assetID uuid.UUID, eventID uuid.UUID, snowflakeID uint64) []byte {
	record := make([]byte, LeafRecordBytes)
	EncodeLeafRecord(record, assetID, eventID, snowflakeID)
	return record
}

// EncodeLeafRecord populates a LeafRecordBytes-sized buffer in place.
//
// | 0  -  15   | 16 - 22  | 23               | 24  -  31   | 32  -  47  |
// | event uuid | reserved | reserved (epoch) | snowflake id| asset uuid |
// |     16     |     7    |     1            |      8      |     16    |
func EncodeLeafRecord(record []byte, assetID uuid.UUID, eventID uuid.UUID, snowflakeID uint64) {
	copy(record[eventIDFirst:eventIDEnd], eventID[:])
	copy(record[assetIDFirst:assetIDEnd], assetID[:])
	binary.BigEndian.PutUint64(record[snowflakeIDFirst:snowflakeIDEnd], snowflakeID)
}

// DecodeLeafRecord is the inverse of EncodeLeafRecord.
func DecodeLeafRecord(record []byte) (assetID uuid.UUID, eventID uuid.UUID, snowflakeID uint64, err error) {
	if len(record) != LeafRecordBytes {
		return uuid.UUID{}, uuid.UUID{}, 0, ErrLeafRecordBadSize
	}
	copy(eventID[:], record[eventIDFirst:eventIDEnd])
	copy(assetID[:], record[assetIDFirst:assetIDEnd])
	snowflakeID = binary.BigEndian.Uint64(record[snowflakeIDFirst:snowflakeIDEnd])
	return assetID, eventID, snowflakeID, nil
}
