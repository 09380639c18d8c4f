// Package store implements the Cube Writer's on-disk chunked array format
// (C8): a directory tree with one subdirectory per variable/coordinate,
// compressed chunk files, and a consolidated metadata file at the root.
// Chunk compression uses github.com/klauspost/compress/zstd, the same
// compressor a zarr reader would expect to decode chunks with.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/dc3/cubebuilder/chunk"
	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/errs"
	"github.com/dc3/cubebuilder/ndarray"
)

// ArrayMeta is the per-variable/coordinate metadata file (the consolidated
// metadata's per-array entries are copies of this).
type ArrayMeta struct {
	Shape  []int  `json:"shape"`
	Chunks []int  `json:"chunks"`
	DType  string `json:"dtype"` // always "float64" for this store
}

// CubeMeta is the consolidated metadata file at the store root.
type CubeMeta struct {
	Coordinates map[string]ArrayMeta   `json:"coordinates"`
	Variables   map[string]ArrayMeta   `json:"variables"`
	Attrs       map[string]interface{} `json:"attrs"`
}

const metaFileName = "cube.json"

// WriteArray1D writes a 1-D coordinate array (x, y, or t) under dir/name,
// as a single zstd-compressed chunk "0" (coordinate arrays are small by
// construction).
func WriteArray1D(dir, name string, values []float64) (ArrayMeta, error) {
	sub := filepath.Join(dir, name)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return ArrayMeta{}, errs.UploadErrorf(name, "creating coordinate directory: %v", err)
	}
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	if err := writeCompressedChunk(filepath.Join(sub, "0"), buf); err != nil {
		return ArrayMeta{}, err
	}
	return ArrayMeta{Shape: []int{len(values)}, Chunks: []int{len(values)}, DType: "float64"}, nil
}

// WriteArray3D writes a 3-D data variable (x, y, t order) under dir/name,
// splitting it into chunks of the given plan and compressing each chunk
// independently, per "arrays are compressed chunk files".
func WriteArray3D(dir, name string, nx, ny, nt int, get func(x, y, t int) float64, plan chunk.Plan) (ArrayMeta, error) {
	sub := filepath.Join(dir, name)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return ArrayMeta{}, errs.UploadErrorf(name, "creating variable directory: %v", err)
	}

	cx, cy, ct := plan.X, plan.Y, plan.T
	for x0 := 0; x0 < nx; x0 += cx {
		for y0 := 0; y0 < ny; y0 += cy {
			for t0 := 0; t0 < nt; t0 += ct {
				x1, y1, t1 := minI(x0+cx, nx), minI(y0+cy, ny), minI(t0+ct, nt)
				buf := encodeChunk(get, x0, x1, y0, y1, t0, t1)
				key := fmt.Sprintf("%d.%d.%d", x0/cx, y0/cy, t0/ct)
				if err := writeCompressedChunk(filepath.Join(sub, key), buf); err != nil {
					return ArrayMeta{}, err
				}
			}
		}
	}
	return ArrayMeta{Shape: []int{nx, ny, nt}, Chunks: []int{cx, cy, ct}, DType: "float64"}, nil
}

func encodeChunk(get func(x, y, t int) float64, x0, x1, y0, y1, t0, t1 int) []byte {
	n := (x1 - x0) * (y1 - y0) * (t1 - t0)
	buf := make([]byte, n*8)
	i := 0
	for x := x0; x < x1; x++ {
		for y := y0; y < y1; y++ {
			for t := t0; t < t1; t++ {
				binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(get(x, y, t)))
				i++
			}
		}
	}
	return buf
}

func writeCompressedChunk(path string, raw []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.UploadErrorf(path, "creating chunk file: %v", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return errs.UploadErrorf(path, "creating compressor: %v", err)
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return errs.UploadErrorf(path, "compressing chunk: %v", err)
	}
	return enc.Close()
}

func readCompressedChunk(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.DownloadErrorf(path, "opening chunk file: %v", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, errs.DownloadErrorf(path, "creating decompressor: %v", err)
	}
	defer dec.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(dec); err != nil {
		return nil, errs.DownloadErrorf(path, "decompressing chunk: %v", err)
	}
	return out.Bytes(), nil
}

// ReadArray3D reads back a 3-D data variable written by WriteArray3D.
func ReadArray3D(dir, name string, meta ArrayMeta) (*ndarray.Array, error) {
	nx, ny, nt := meta.Shape[0], meta.Shape[1], meta.Shape[2]
	cx, cy, ct := meta.Chunks[0], meta.Chunks[1], meta.Chunks[2]
	out := ndarray.NewArray(nx, ny, nt)
	sub := filepath.Join(dir, name)

	for x0 := 0; x0 < nx; x0 += cx {
		for y0 := 0; y0 < ny; y0 += cy {
			for t0 := 0; t0 < nt; t0 += ct {
				x1, y1, t1 := minI(x0+cx, nx), minI(y0+cy, ny), minI(t0+ct, nt)
				key := fmt.Sprintf("%d.%d.%d", x0/cx, y0/cy, t0/ct)
				buf, err := readCompressedChunk(filepath.Join(sub, key))
				if err != nil {
					return nil, err
				}
				decodeChunk(out, buf, x0, x1, y0, y1, t0, t1)
			}
		}
	}
	return out, nil
}

func decodeChunk(dst *ndarray.Array, buf []byte, x0, x1, y0, y1, t0, t1 int) {
	i := 0
	for x := x0; x < x1; x++ {
		for y := y0; y < y1; y++ {
			for t := t0; t < t1; t++ {
				dst.Set(math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:])), x, y, t)
				i++
			}
		}
	}
}

// ReadArray1D reads back a coordinate array written by WriteArray1D.
func ReadArray1D(dir, name string) ([]float64, error) {
	buf, err := readCompressedChunk(filepath.Join(dir, name, "0"))
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out, nil
}

// WriteMeta writes the consolidated metadata file at the store root.
func WriteMeta(dir string, meta CubeMeta) error {
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errs.UploadErrorf(metaFileName, "marshaling metadata: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFileName), b, 0o644); err != nil {
		return errs.UploadErrorf(metaFileName, "writing metadata: %v", err)
	}
	return nil
}

// ReadMeta reads the consolidated metadata file at the store root.
func ReadMeta(dir string) (CubeMeta, error) {
	b, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return CubeMeta{}, errs.DownloadErrorf(metaFileName, "reading metadata: %v", err)
	}
	var meta CubeMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return CubeMeta{}, errs.DownloadErrorf(metaFileName, "unmarshaling metadata: %v", err)
	}
	return meta, nil
}

// WriteCube writes a complete cube store at dir: 1-D coordinate arrays x, y,
// t, one 3-D data variable per cube.Vars entry chunked per plan, and the
// consolidated metadata file carrying attrs (output store
// layout). dir is created if missing; an existing dir is written into.
func WriteCube(dir string, cube *dataset.Cube, plan chunk.Plan, attrs map[string]interface{}) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.UploadErrorf(dir, "creating store root: %v", err)
	}

	meta := CubeMeta{
		Coordinates: map[string]ArrayMeta{},
		Variables:   map[string]ArrayMeta{},
		Attrs:       attrs,
	}

	xMeta, err := WriteArray1D(dir, "x", cube.X)
	if err != nil {
		return err
	}
	yMeta, err := WriteArray1D(dir, "y", cube.Y)
	if err != nil {
		return err
	}
	tMeta, err := WriteArray1D(dir, "t", timeAsFloat(cube.T))
	if err != nil {
		return err
	}
	meta.Coordinates["x"], meta.Coordinates["y"], meta.Coordinates["t"] = xMeta, yMeta, tMeta

	nx, ny, nt := cube.Dims()
	for _, name := range cube.VarNames() {
		arr := cube.Vars[name]
		vMeta, err := WriteArray3D(dir, name, nx, ny, nt, func(x, y, t int) float64 {
			return arr.Get(x, y, t)
		}, plan)
		if err != nil {
			return err
		}
		meta.Variables[name] = vMeta
	}

	return WriteMeta(dir, meta)
}

func timeAsFloat(t []int64) []float64 {
	out := make([]float64, len(t))
	for i, v := range t {
		out[i] = float64(v)
	}
	return out
}

func minI(a, b int) int {
	if a < b {
		return a
	}
	return b
}
