// Package raster implements the Raster Stager (C3): archive opening,
// per-subband decoding via a product-type decoder registry, reprojection
// and cropping against the ROI, and writing the per-granule intermediate
// chunked store.
package raster

import (
	"archive/zip"
	"bytes"
	"io"

	"github.com/dc3/cubebuilder/errs"
)

// Archive is a read-only view over a source product's payload files
// (metadata XML, band images), opened via the storage collaborator. Product
// archives are ZIP containers (e.g. Sentinel-2's SAFE format); no ecosystem
// ZIP reader was found in the retrieval pack, so this wraps the standard
// library's archive/zip (see DESIGN.md).
type Archive struct {
	zr *zip.Reader
}

// OpenArchive reads the full contents of r (an opened storage byte stream)
// into memory and parses it as a ZIP archive.
func OpenArchive(uri string, r io.Reader) (*Archive, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.DownloadErrorf(uri, "reading archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, errs.DownloadErrorf(uri, "opening archive as zip: %v", err)
	}
	return &Archive{zr: zr}, nil
}

// Names returns every file name held by the archive.
func (a *Archive) Names() []string {
	out := make([]string, len(a.zr.File))
	for i, f := range a.zr.File {
		out[i] = f.Name
	}
	return out
}

// Open returns a reader for the named archive entry.
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	for _, f := range a.zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, errs.DownloadErrorf(name, "entry not found in archive")
}

// Find returns the first entry name for which match returns true.
func (a *Archive) Find(match func(name string) bool) (string, bool) {
	for _, f := range a.zr.File {
		if match(f.Name) {
			return f.Name, true
		}
	}
	return "", false
}
