package mmrblobs

import (
	"context"
	"errors"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/datatrails/go-datatrails-merklelog/mmr"
)

var ErrBundleNotFound = errors.New("no bundle found for tenant")

// ProofBundle is a decoded bundle: the header (§3.3), the COSE Sign1 signed
// root statement (§3.1), and the raw proof/leaf stream bytes ready to be
// wrapped in mmr.BufferReader instances.
type ProofBundle struct {
	Header      BundleHeader
	SignedRoot  []byte
	ProofStream []byte
	LeafStream  []byte
}

// ProofBlobReader fetches proof bundles for a tenant's log from Azure Blob
// Storage via a bundleBlobStore. The buffer-delivery glue that loads these
// bytes off the wire lives entirely here, one layer above
// mmr.VerifyInclusion.
type ProofBlobReader struct {
	log   logger.Logger
	store bundleBlobStore
}

func NewProofBlobReader(log logger.Logger, store bundleBlobStore) ProofBlobReader {
	return ProofBlobReader{log: log, store: store}
}

// GetLatestBundle fetches the most recently written bundle for tenantIdentity.
func (r ProofBlobReader) GetLatestBundle(
	ctx context.Context, tenantIdentity string, opts ...azblob.Option,
) (ProofBundle, error) {
	lc, count, err := LastPrefixedBlob(ctx, r.store, TenantBundlePrefix(tenantIdentity))
	if err != nil {
		return ProofBundle{}, err
	}
	if count == 0 {
		return ProofBundle{}, ErrBundleNotFound
	}
	return r.readBundle(ctx, lc, opts...)
}

// GetBundle fetches the bundle at the given index for tenantIdentity.
func (r ProofBlobReader) GetBundle(
	ctx context.Context, tenantIdentity string, bundleIndex uint64, opts ...azblob.Option,
) (ProofBundle, error) {
	lc := LogBlobContext{BlobPath: TenantBundleBlobPath(tenantIdentity, bundleIndex)}
	return r.readBundle(ctx, lc, opts...)
}

func (r ProofBlobReader) readBundle(
	ctx context.Context, lc LogBlobContext, opts ...azblob.Option,
) (ProofBundle, error) {
	if err := lc.ReadData(ctx, r.store, opts...); err != nil {
		return ProofBundle{}, err
	}

	var header BundleHeader
	if err := header.UnmarshalBinary(lc.Data); err != nil {
		return ProofBundle{}, err
	}

	rest := lc.Data[BundleHeaderBytes:]
	signedRoot, rest, err := ReadFramedSection(rest)
	if err != nil {
		return ProofBundle{}, err
	}
	proofStream, rest, err := ReadFramedSection(rest)
	if err != nil {
		return ProofBundle{}, err
	}
	leafStream, _, err := ReadFramedSection(rest)
	if err != nil {
		return ProofBundle{}, err
	}

	return ProofBundle{
		Header:      header,
		SignedRoot:  signedRoot,
		ProofStream: proofStream,
		LeafStream:  leafStream,
	}, nil
}

// EncodeBundle serializes a bundle into the framed layout ReadFramedSection
// (and ProofBlobReader/massifs.BundleReader) expect: the fixed header
// followed by the signed root, proof stream, and leaf stream, each prefixed
// with a 4-byte big-endian length.
func EncodeBundle(mmrSize uint64, signedRoot, proofStream, leafStream []byte) ([]byte, error) {
	header, err := NewBundleHeader(mmrSize).MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := header
	for _, section := range [][]byte{signedRoot, proofStream, leafStream} {
		out = appendFramedSection(out, section)
	}
	return out, nil
}

func appendFramedSection(out, section []byte) []byte {
	n := uint32(len(section))
	out = append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(out, section...)
}

// ReadFramedSection reads one 4-byte-length-prefixed section from b,
// returning its payload and the remaining bytes. Shared by the Azure blob
// loader and massifs.BundleReader's local-file decoding, since both store
// bundles in the same framed layout.
func ReadFramedSection(b []byte) (payload, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, mmr.ErrProofEOF
	}
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, mmr.ErrProofEOF
	}
	return b[:n], b[n:], nil
}
