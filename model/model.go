// Package model defines the core entities of the datacube builder: build
// requests, raster groups/files, product types, band descriptors, and the
// invariants a request must satisfy before a build can proceed.
package model

import (
	"sort"

	"github.com/dc3/cubebuilder/errs"
)

// ChunkStrategy names one of the three chunk-shape templates a build
// request may select.
type ChunkStrategy string

const (
	Potato  ChunkStrategy = "POTATO"
	Carrot  ChunkStrategy = "CARROT"
	Spinach ChunkStrategy = "SPINACH"
)

// RGBChannel is the optional RGB channel a band descriptor may be assigned
// for preview rendering.
type RGBChannel string

const (
	NoChannel RGBChannel = ""
	Red       RGBChannel = "RED"
	Green     RGBChannel = "GREEN"
	Blue      RGBChannel = "BLUE"
)

// ProductType identifies a raster source and its on-disk format. Equality
// is by both fields.
type ProductType struct {
	Source string
	Format string
}

// AliasedProductType binds a ProductType to the short alias used in band
// expressions (e.g. "S2" for Sentinel2/L2A-SAFE).
type AliasedProductType struct {
	Alias string
	ProductType
}

// RasterFile is one source archive: its product type, a storage URI, and
// an opaque identifier (used to name the file's scratch directory; files
// are sorted by URI, not by ID).
type RasterFile struct {
	ProductType ProductType
	URI         string
	ID          string
}

// RasterGroup is a temporal bucket: an acquisition timestamp (unix seconds)
// plus the ordered raster files captured in that window.
type RasterGroup struct {
	Timestamp int64
	Files     []RasterFile
}

// BandDescriptor names a cube variable, the alias.subband expression that
// produces it, and its optional clip range / RGB / colormap metadata.
type BandDescriptor struct {
	Name        string
	Expression  string
	HasClip     bool
	Min, Max    float64
	RGB         RGBChannel
	Colormap    string
	Description string
	Unit        string
}

// BuildRequest is the immutable input to a build: an ordered sequence of
// raster groups, the declared aliases and bands, the target geometry, and
// output options.
type BuildRequest struct {
	CubeID           string
	Groups           []RasterGroup
	Bands            []BandDescriptor
	Aliases          []AliasedProductType
	ROI              string
	TargetResolution float64
	TargetCRS        string
	ChunkStrategy    ChunkStrategy
	Description      string
	Pivot            bool
}

// Validate checks the seven invariants of that are verifiable
// from the request alone (mosaic/master-grid invariants are checked later,
// once those values exist).
func (r *BuildRequest) Validate() error {
	if r.CubeID == "" {
		return errs.BadRequestf("cube_id", "cube output identifier must not be empty")
	}
	if r.TargetResolution <= 0 {
		return errs.BadRequestf("target_resolution", "target resolution must be > 0, got %v", r.TargetResolution)
	}
	switch r.ChunkStrategy {
	case Potato, Carrot, Spinach:
	default:
		return errs.BadRequestf("chunking_strategy", "unknown chunking strategy %q", r.ChunkStrategy)
	}

	aliasSet := map[string]ProductType{}
	for _, a := range r.Aliases {
		aliasSet[a.Alias] = a.ProductType
	}

	// Invariant 1: every file's product type appears in the request's alias
	// list.
	for gi, g := range r.Groups {
		for fi, f := range g.Files {
			found := false
			for _, a := range r.Aliases {
				if a.ProductType == f.ProductType {
					found = true
					break
				}
			}
			if !found {
				return errs.BadRequestf("aliases", "group %d file %d has product type %+v not present in alias list", gi, fi, f.ProductType)
			}
		}
	}

	// Invariant 2: every alias.subband token in any band expression
	// resolves to a declared alias.
	for _, b := range r.Bands {
		for _, ref := range ExtractAliasRefs(b.Expression) {
			if _, ok := aliasSet[ref]; !ok {
				return errs.BadRequestf("bands", "band %q references undeclared alias %q", b.Name, ref)
			}
		}
	}

	// Invariant 3: exactly 0 or exactly 3 bands carry an RGB assignment; if
	// 3, they cover {RED, GREEN, BLUE} with no duplicates.
	seen := map[RGBChannel]bool{}
	count := 0
	for _, b := range r.Bands {
		if b.RGB == NoChannel {
			continue
		}
		count++
		if seen[b.RGB] {
			return errs.BadRequestf("bands", "RGB channel %s assigned to more than one band", b.RGB)
		}
		seen[b.RGB] = true
	}
	if count != 0 && count != 3 {
		return errs.BadRequestf("bands", "expected exactly 0 or 3 RGB-assigned bands, got %d", count)
	}

	names := map[string]bool{}
	for _, b := range r.Bands {
		if names[b.Name] {
			return errs.BadRequestf("bands", "duplicate band name %q", b.Name)
		}
		names[b.Name] = true
	}

	return nil
}

// SortedTimestamps returns the request's group timestamps, sorted and
// de-duplicated: cube t is the sorted, distinct sequence of group
// timestamps.
func (r *BuildRequest) SortedTimestamps() []int64 {
	seen := map[int64]bool{}
	var out []int64
	for _, g := range r.Groups {
		if !seen[g.Timestamp] {
			seen[g.Timestamp] = true
			out = append(out, g.Timestamp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSingleGranule reports whether the request contains exactly one group
// with exactly one file.
func (r *BuildRequest) IsSingleGranule() bool {
	return len(r.Groups) == 1 && len(r.Groups[0].Files) == 1
}
