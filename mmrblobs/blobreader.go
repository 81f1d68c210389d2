package mmrblobs

import (
	"context"

	"github.com/datatrails/go-datatrails-common/azblob"
)

// bundleBlobStore is the minimal surface ProofBlobReader and
// SignedRootReader need from an Azure container holding a tenant's bundles:
// fetch one blob by path, or list the blobs under a tenant's bundle prefix
// so the newest one (the highest bundleIndex, per TenantBundleBlobPath's
// naming) can be picked out. Bundle framing itself (header, signed root,
// proof/leaf streams) is decoded one layer up, in proofblob.go.
type bundleBlobStore interface {
	Reader(
		ctx context.Context,
		identity string,
		opts ...azblob.Option,
	) (*azblob.ReaderResponse, error)

	List(ctx context.Context, opts ...azblob.Option) (*azblob.ListerResponse, error)
}
