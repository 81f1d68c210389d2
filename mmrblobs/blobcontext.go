package mmrblobs

import (
	"context"
	"time"

	"github.com/datatrails/go-datatrails-common/azblob"
)

// LogBlobContext identifies a single blob in the tenant's log and caches the
// last data read from it, along with the concurrency token azure hands back
// on read.
type LogBlobContext struct {
	BlobPath      string
	Data          []byte
	Tags          map[string]string
	ETag          string
	LastModfified time.Time
	LastRead      time.Time
}

// ReadData fetches the blob identified by BlobPath and populates Data, Tags
// and ETag from the response.
func (lc *LogBlobContext) ReadData(ctx context.Context, store bundleBlobStore, opts ...azblob.Option) error {
	rr, data, err := BlobRead(ctx, lc.BlobPath, store, opts...)
	if err != nil {
		return err
	}
	lc.Data = data
	lc.Tags = rr.Tags
	if rr.ETag != nil {
		lc.ETag = *rr.ETag
	}
	if rr.LastModified != nil {
		lc.LastModfified = *rr.LastModified
	}
	lc.LastRead = time.Now()
	return nil
}

// BlobRead reads the full contents of the blob at path, returning the raw
// response (for its ETag/Tags/LastModified metadata) alongside the bytes.
func BlobRead(
	ctx context.Context, path string, store bundleBlobStore, opts ...azblob.Option,
) (*azblob.ReaderResponse, []byte, error) {
	rr, err := store.Reader(ctx, path, opts...)
	if err != nil {
		return nil, nil, err
	}
	return rr, rr.Data, nil
}
