package mmrblobs

import (
	"context"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/cbor"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/datatrails/go-datatrails-common/logger"
)

// SignedRootReader provides a context for reading the signed tree head
// associated with a tenant's log. Note: the acronym is due to RFC 9162.
type SignedRootReader struct {
	log   logger.Logger
	store bundleBlobStore
	codec cbor.CBORCodec
}

func NewSignedRootReader(log logger.Logger, store bundleBlobStore, codec cbor.CBORCodec) SignedRootReader {
	return SignedRootReader{
		log:   log,
		store: store,
		codec: codec,
	}
}

// GetLatestSignedRoot returns the most recently signed root for the tenant's
// log, and how many signed roots exist under the tenant's prefix.
//
// The returned state's Root is nil (the signer detaches it before
// transmission, see RootSigner.Sign1) — callers must recompute the root
// independently from the log at MMRSize before calling VerifySignedRoot.
func (s *SignedRootReader) GetLatestSignedRoot(
	ctx context.Context, tenantIdentity string,
	opts ...azblob.Option,
) (*dtcose.CoseSign1Message, MMRState, uint64, error) {

	blobPrefixPath := TenantSignedRootsPrefix(tenantIdentity)
	lc, count, err := LastPrefixedBlob(ctx, s.store, blobPrefixPath)
	if err != nil {
		return nil, MMRState{}, 0, err
	}

	err = lc.ReadData(ctx, s.store, opts...)
	if err != nil {
		return nil, MMRState{}, 0, err
	}
	signed, unverifiedState, err := DecodeSignedRoot(s.codec, lc.Data)
	if err != nil {
		return nil, MMRState{}, 0, err
	}

	return signed, unverifiedState, count, err
}

// GetSignedRoot returns the signed root for the bundle identified by
// bundleIndex. See GetLatestSignedRoot for the detached-root caveat.
func (s *SignedRootReader) GetSignedRoot(
	ctx context.Context, tenantIdentity string, bundleIndex uint64,
	opts ...azblob.Option,
) (*dtcose.CoseSign1Message, MMRState, error) {

	lc := LogBlobContext{
		BlobPath: TenantSignedRootPath(tenantIdentity, bundleIndex),
	}
	err := lc.ReadData(ctx, s.store, opts...)
	if err != nil {
		return nil, MMRState{}, err
	}
	signed, unverifiedState, err := DecodeSignedRoot(s.codec, lc.Data)
	if err != nil {
		return nil, MMRState{}, err
	}

	return signed, unverifiedState, err
}
