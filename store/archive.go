package store

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dc3/cubebuilder/errs"
)

// CatalogGeometry is a GeoJSON-ish polygon carried in the STAC-like catalog
// (ported from the Python original's pivot/models/catalog.py Polygon type).
type CatalogGeometry struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// Catalog is the STAC-like catalog document written alongside a pivot
// archive, grounded on datacube/core/pivot/format.py's CatalogDescription.
type Catalog struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	BBox        [4]float64             `json:"bbox"`
	Geometry    CatalogGeometry        `json:"geometry"`
	Assets      map[string][]string    `json:"assets"`
	Properties  map[string]interface{} `json:"properties"`
}

// PivotRequest carries the fields pivot_format_datacube needs from the build
// request and computed metadata.
type PivotRequest struct {
	ID             string // caller-generated unique id, e.g. "MMI_MULT_DCP_<ts>_<rand>"
	Title          string
	Description    string
	TargetCRSEPSG  int
	TargetResMeter int
	Bands          []string // cube variable names, in the order they appear in the band spec
	BBox           [4]float64
	TMin, TMax     int64
	Properties     map[string]interface{} // additional STAC-like properties (dc3:* / cube:* aliases)
}

// BuildPivotArchive packages storeDir (a complete cube store written by
// WriteCube) and previewPath into the PRODUCT_<id> distribution layout
// (datacube/core/pivot/format.py's pivot_format_datacube), tars it with
// gzip compression, and returns the archive path and the preview's name
// inside the archive.
func BuildPivotArchive(storeDir, previewPath, previewExt string, req PivotRequest) (archivePath, previewName string, err error) {
	parent := filepath.Dir(storeDir)
	productRoot := filepath.Join(parent, fmt.Sprintf("PRODUCT_%s", req.ID))
	if err := os.MkdirAll(productRoot, 0o755); err != nil {
		return "", "", errs.UploadErrorf(productRoot, "creating pivot root: %v", err)
	}
	defer os.RemoveAll(productRoot)

	bandsJoined := strings.Join(req.Bands, "")
	catalog := Catalog{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		BBox:        req.BBox,
		Geometry:    bboxPolygon(req.BBox),
		Assets:      map[string][]string{"datacube": req.Bands},
		Properties:  req.Properties,
	}
	catalogPath := filepath.Join(productRoot, fmt.Sprintf("CAT_%s.json", req.ID))
	if err := writeJSON(catalogPath, catalog); err != nil {
		return "", "", err
	}

	previewName = fmt.Sprintf("PREVIEW_%s%s", req.ID, previewExt)
	if err := copyFile(previewPath, filepath.Join(productRoot, previewName)); err != nil {
		return "", "", err
	}

	imageRoot := filepath.Join(productRoot, fmt.Sprintf("IMAGE_%s", req.ID))
	if err := os.MkdirAll(imageRoot, 0o755); err != nil {
		return "", "", errs.UploadErrorf(imageRoot, "creating image root: %v", err)
	}
	zarrName := fmt.Sprintf("IMG_DC3_%s_%dm_%s.ZARR", bandsJoined, req.TargetResMeter, req.ID)
	if err := copyDir(storeDir, filepath.Join(imageRoot, zarrName)); err != nil {
		return "", "", err
	}

	archivePath = filepath.Join(parent, fmt.Sprintf("%s.TAR", req.ID))
	if err := tarGzDir(productRoot, archivePath); err != nil {
		return "", "", err
	}
	return archivePath, previewName, nil
}

func bboxPolygon(b [4]float64) CatalogGeometry {
	xmin, ymin, xmax, ymax := b[0], b[1], b[2], b[3]
	return CatalogGeometry{
		Type: "Polygon",
		Coordinates: [][2]float64{
			{xmin, ymin}, {xmax, ymin}, {xmax, ymax}, {xmin, ymax}, {xmin, ymin},
		},
	}
}

func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.UploadErrorf(path, "marshaling catalog: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errs.UploadErrorf(path, "writing catalog: %v", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errs.UploadErrorf(src, "opening preview: %v", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return errs.UploadErrorf(dst, "creating preview copy: %v", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return errs.UploadErrorf(dst, "copying preview: %v", err)
	}
	return nil
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func tarGzDir(root, archivePath string) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return errs.UploadErrorf(archivePath, "creating archive: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	base := filepath.Base(root)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := base
		if rel != "." {
			name = filepath.Join(base, rel)
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if err := tw.WriteHeader(hdr); err != nil {
			return errs.UploadErrorf(archivePath, "writing tar header: %v", err)
		}
		if info.IsDir() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return errs.UploadErrorf(path, "opening file for archive: %v", err)
		}
		defer file.Close()
		if _, err := io.Copy(tw, file); err != nil {
			return errs.UploadErrorf(archivePath, "writing tar contents: %v", err)
		}
		return nil
	})
}
