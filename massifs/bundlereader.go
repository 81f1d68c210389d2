package massifs

import (
	"context"
	"errors"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/datatrails/go-datatrails-merklelog/mmrblobs"
)

var (
	ErrPathIsNotDir = errors.New("expected the path to be an existing directory")
	ErrDirResolverNotProvided = errors.New("a directory resolver was not provided")
)

// DirResolver maps a tenant identity or an explicit local path to the
// directory holding that tenant's bundle files. Adapted from the teacher's
// massifs/localmassifreader.go DirResolver.
type DirResolver interface {
	ResolveBundleDir(tenantIdentityOrLocalPath string) (string, error)
}

// BundleReader reads proof bundles from a local directory, caching directory
// scans across repeated reads via DirCache (spec.md §3.3). Adapted from the
// teacher's massifs/localmassifreader.go LocalReader, trimmed to the single
// responsibility of locating and decoding bundle files — there is no
// "creating"/append-log state here, because building or updating the MMR is
// out of scope (spec.md Non-goals).
type BundleReader struct {
	log      logger.Logger
	cache    *DirCache
	resolver DirResolver
}

func NewBundleReader(log logger.Logger, cache *DirCache, resolver DirResolver) BundleReader {
	return BundleReader{log: log, cache: cache, resolver: resolver}
}

// GetBundle resolves tenantIdentityOrLocalPath to a directory and reads the
// bundle with the given mmrSize from it.
func (r BundleReader) GetBundle(
	ctx context.Context, tenantIdentityOrLocalPath string, mmrSize uint64,
) (mmrblobs.ProofBundle, error) {
	if r.resolver == nil {
		return mmrblobs.ProofBundle{}, ErrDirResolverNotProvided
	}
	directory, err := r.resolver.ResolveBundleDir(tenantIdentityOrLocalPath)
	if err != nil {
		return mmrblobs.ProofBundle{}, err
	}

	data, err := r.cache.ReadBundle(directory, mmrSize)
	if err != nil {
		return mmrblobs.ProofBundle{}, err
	}

	return decodeBundle(data)
}

// decodeBundle mirrors mmrblobs.ProofBlobReader's on-wire decoding for
// locally stored bundle files, which use the same framed layout.
func decodeBundle(data []byte) (mmrblobs.ProofBundle, error) {
	var header mmrblobs.BundleHeader
	if err := header.UnmarshalBinary(data); err != nil {
		return mmrblobs.ProofBundle{}, err
	}

	rest := data[mmrblobs.BundleHeaderBytes:]
	signedRoot, rest, err := mmrblobs.ReadFramedSection(rest)
	if err != nil {
		return mmrblobs.ProofBundle{}, err
	}
	proofStream, rest, err := mmrblobs.ReadFramedSection(rest)
	if err != nil {
		return mmrblobs.ProofBundle{}, err
	}
	leafStream, _, err := mmrblobs.ReadFramedSection(rest)
	if err != nil {
		return mmrblobs.ProofBundle{}, err
	}

	return mmrblobs.ProofBundle{
		Header:      header,
		SignedRoot:  signedRoot,
		ProofStream: proofStream,
		LeafStream:  leafStream,
	}, nil
}

// LocalDirResolver is the simplest DirResolver: tenantIdentityOrLocalPath is
// always treated as the directory itself.
type LocalDirResolver struct{}

func (LocalDirResolver) ResolveBundleDir(tenantIdentityOrLocalPath string) (string, error) {
	return tenantIdentityOrLocalPath, nil
}
