package massifs

import (
	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/cbor"
)

// ReaderOptions collects functional options for blob and bundle readers.
// Implementations are expected to simply ignore options they don't support.
// Neither BundleReader nor mmrblobs.SignedRootReader takes ReaderOptions.
type ReaderOptions struct {
	// options that are forwarded when issuing a read blob call
	remoteReadOpts []azblob.Option
	// options that are forwarded when issuing a list blobs call
	remoteListOpts []azblob.Option

	// codec is only relevant when the reader is configured to decode seals
	codec cbor.CBORCodec
}

// ReaderOptionsCopy creates an independent copy of opts.
func ReaderOptionsCopy(opts ReaderOptions) ReaderOptions {
	cpy := opts

	cpy.remoteReadOpts = make([]azblob.Option, len(opts.remoteReadOpts))
	copy(cpy.remoteReadOpts, opts.remoteReadOpts)

	cpy.remoteListOpts = make([]azblob.Option, len(opts.remoteListOpts))
	copy(cpy.remoteListOpts, opts.remoteListOpts)
	return cpy
}

type ReaderOption func(*ReaderOptions)

func WithReadBlobOption(opt azblob.Option) ReaderOption {
	return func(opts *ReaderOptions) {
		opts.remoteReadOpts = append(opts.remoteReadOpts, opt)
	}
}

func WithListBlobOption(opt azblob.Option) ReaderOption {
	return func(opts *ReaderOptions) {
		opts.remoteListOpts = append(opts.remoteListOpts, opt)
	}
}

func WithCBORCodec(codec cbor.CBORCodec) ReaderOption {
	return func(o *ReaderOptions) {
		o.codec = codec
	}
}
