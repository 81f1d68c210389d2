package massifs

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/datatrails/go-datatrails-merklelog/mmrblobs"
)

var (
	ErrBundleFileNoHeader         = errors.New("the file is too short to hold a bundle header")
	ErrBundleFileBadHeader        = errors.New("a bundle file header was malformed")
	ErrBundleFileDuplicateIndices = errors.New("bundle files with the same index found in a single directory")
	ErrBundleFileNotFound         = errors.New("no bundle file found for the requested index")
	ErrDirListerNotProvided       = errors.New("the reader option providing a bundle directory lister was not provided")
)

// DirLister lists the absolute paths to files (not subdirectories) in a
// directory. Adapted from the teacher's massifs/logdircache.go DirLister.
type DirLister interface {
	ListFiles(string) ([]string, error)
}

// Opener opens a file for reading. Adapted from the teacher's
// massifs/logdircache.go Opener.
type Opener interface {
	Open(string) (io.ReadCloser, error)
}

type osDirLister struct{}

func (osDirLister) ListFiles(directory string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(directory, e.Name()))
	}
	return files, nil
}

type osOpener struct{}

func (osOpener) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// DirCacheEntry caches the bundle files found in a single directory, keyed
// by their header's MMRSize so repeated reads of the same directory skip the
// directory scan.
type DirCacheEntry struct {
	DirPath     string
	BundlePaths map[uint64]string
}

func newDirCacheEntry(directory string) *DirCacheEntry {
	return &DirCacheEntry{
		DirPath:     directory,
		BundlePaths: make(map[uint64]string),
	}
}

// DirCache scans directories for bundle files and caches the scan results.
// Adapted from the teacher's massifs/logdircache.go LogDirCache, trimmed to
// the single file kind (proof bundles) this repository's loader needs.
//
// A cache may, and should, be shared between multiple BundleReader
// instances. The implementation assumes single-threaded access; it is not
// goroutine safe.
type DirCache struct {
	log     logger.Logger
	lister  DirLister
	opener  Opener
	entries map[string]*DirCacheEntry
}

func NewDirCache(log logger.Logger, lister DirLister, opener Opener) *DirCache {
	if lister == nil {
		lister = osDirLister{}
	}
	if opener == nil {
		opener = osOpener{}
	}
	return &DirCache{
		log:     log,
		lister:  lister,
		opener:  opener,
		entries: make(map[string]*DirCacheEntry),
	}
}

// DeleteEntry removes the cached results for a single directory.
func (c *DirCache) DeleteEntry(directory string) {
	delete(c.entries, directory)
}

func (c *DirCache) GetEntry(directory string) (*DirCacheEntry, bool) {
	e, ok := c.entries[directory]
	return e, ok
}

// FindBundleFiles scans directory for bundle files and records, for each,
// the MMRSize its header declares. Files whose header can't be read are
// skipped; two files declaring the same MMRSize is an error, since a
// directory should only ever hold one bundle per size.
func (c *DirCache) FindBundleFiles(directory string) error {
	entry := newDirCacheEntry(directory)

	paths, err := c.lister.ListFiles(directory)
	if err != nil {
		return err
	}

	for _, path := range paths {
		header, err := c.readHeader(path)
		if err != nil {
			continue
		}
		if _, exists := entry.BundlePaths[header.MMRSize]; exists {
			return ErrBundleFileDuplicateIndices
		}
		entry.BundlePaths[header.MMRSize] = path
	}

	c.entries[directory] = entry
	return nil
}

func (c *DirCache) readHeader(path string) (mmrblobs.BundleHeader, error) {
	f, err := c.opener.Open(path)
	if err != nil {
		return mmrblobs.BundleHeader{}, err
	}
	defer f.Close()

	buf := make([]byte, mmrblobs.BundleHeaderBytes)
	if _, err := io.ReadFull(f, buf); err != nil {
		return mmrblobs.BundleHeader{}, ErrBundleFileNoHeader
	}
	var header mmrblobs.BundleHeader
	if err := header.UnmarshalBinary(buf); err != nil {
		return mmrblobs.BundleHeader{}, ErrBundleFileBadHeader
	}
	return header, nil
}

// ReadBundle reads the full contents of the bundle file for mmrSize in
// directory, scanning the directory first if it hasn't been cached yet.
func (c *DirCache) ReadBundle(directory string, mmrSize uint64) ([]byte, error) {
	entry, ok := c.GetEntry(directory)
	if !ok {
		if err := c.FindBundleFiles(directory); err != nil {
			return nil, err
		}
		entry, _ = c.GetEntry(directory)
	}

	path, ok := entry.BundlePaths[mmrSize]
	if !ok {
		return nil, ErrBundleFileNotFound
	}

	f, err := c.opener.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
