package dataset

import "github.com/dc3/cubebuilder/ndarray"

// IntersectionType classifies how dataset B's bounds overlap dataset A's
// bounds.
type IntersectionType int

const (
	// Same means the two datasets cover exactly the same bounds.
	Same IntersectionType = iota
	Left
	Bottom
	Right
	Top
)

func (t IntersectionType) String() string {
	switch t {
	case Same:
		return "same"
	case Left:
		return "left"
	case Bottom:
		return "bottom"
	case Right:
		return "right"
	case Top:
		return "top"
	default:
		return "unknown"
	}
}

// Intersect classifies the relationship between a's and b's bounds. If the
// bounds are identical, the result is exactly [Same]. Otherwise it is the
// subset of {Left, Bottom, Right, Top} whose condition holds; more than one
// may hold when B straddles a corner of A.
func Intersect(a, b Bounds) []IntersectionType {
	if a == b {
		return []IntersectionType{Same}
	}
	var out []IntersectionType
	if a.XMin < b.XMax && b.XMax < a.XMax {
		out = append(out, Left)
	}
	if a.YMin < b.YMax && b.YMax < a.YMax {
		out = append(out, Bottom)
	}
	if a.XMin < b.XMin && b.XMin < a.XMax {
		out = append(out, Right)
	}
	if a.YMin < b.YMin && b.YMin < a.YMax {
		out = append(out, Top)
	}
	return out
}

func has(types []IntersectionType, t IntersectionType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// Mosaic recursively reconciles two datasets that share the same variable
// set, resolving spatial overlap:
//  1. classify the intersection;
//  2. no overlap at all -> coordinate-combined union;
//  3. SAME extent -> the later product_timestamp wins, combine_first fills
//     any cells it's missing from the other;
//  4. otherwise split both inputs into exterior/overlap/exterior strips
//     along the first of LEFT, BOTTOM, RIGHT, TOP present (counter-clockwise
//     preference), recursively mosaic the overlap, and concatenate.
//
// The recursion terminates because every recursive call strictly shrinks
// the bounding extent of at least one operand.
func Mosaic(a, b *Dataset) (*Dataset, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	ab, bb := BoundsOf(a), BoundsOf(b)
	types := Intersect(ab, bb)

	if len(types) == 0 {
		return CombineByCoords(a, b, nil), nil
	}

	if has(types, Same) {
		return mosaicSame(a, b)
	}

	switch {
	case has(types, Left):
		return mosaicLeft(a, b, ab, bb)
	case has(types, Bottom):
		return mosaicBottom(a, b, ab, bb)
	case has(types, Right):
		return mosaicRight(a, b, ab, bb)
	case has(types, Top):
		return mosaicTop(a, b, ab, bb)
	}
	// Unreachable: Intersect never returns a non-empty, non-Same slice
	// without one of the four directional members set.
	return CombineByCoords(a, b, nil), nil
}

func mosaicSame(a, b *Dataset) (*Dataset, error) {
	winner, loser := a, b
	if b.ProductTimestamp() > a.ProductTimestamp() {
		winner, loser = b, a
	}
	out := winner.clone()
	out.Attrs = cloneAttrs(winner.Attrs)
	out.Attrs["product_timestamp"] = winner.ProductTimestamp()
	for name, warr := range winner.Vars {
		if larr, ok := loser.Vars[name]; ok {
			combined, err := ndarray.CombineFirst(warr, larr)
			if err != nil {
				return nil, err
			}
			out.Vars[name] = combined
		}
	}
	return out, nil
}

func cloneAttrs(attrs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// mosaicLeft handles B's right edge overlapping A's left edge:
// second |  overlap  | first
func mosaicLeft(a, b *Dataset, ab, bb Bounds) (*Dataset, error) {
	left := filterX(b, func(x float64) bool { return x < ab.XMin })
	aInt := filterX(a, func(x float64) bool { return x <= bb.XMax })
	bInt := filterX(b, func(x float64) bool { return x >= ab.XMin })
	overlap, err := Mosaic(aInt, bInt)
	if err != nil {
		return nil, err
	}
	right := filterX(a, func(x float64) bool { return x > bb.XMax })
	if len(left.X) == 0 {
		return concatX(overlap, right), nil
	}
	return concatX(left, overlap, right), nil
}

// mosaicBottom handles B's top edge overlapping A's bottom edge.
func mosaicBottom(a, b *Dataset, ab, bb Bounds) (*Dataset, error) {
	bottom := filterY(b, func(y float64) bool { return y < ab.YMin })
	aInt := filterY(a, func(y float64) bool { return y <= bb.YMax })
	bInt := filterY(b, func(y float64) bool { return y >= ab.YMin })
	overlap, err := Mosaic(aInt, bInt)
	if err != nil {
		return nil, err
	}
	top := filterY(a, func(y float64) bool { return y > bb.YMax })
	if len(bottom.Y) == 0 {
		return concatY(overlap, top), nil
	}
	return concatY(bottom, overlap, top), nil
}

// mosaicRight handles B's left edge overlapping A's right edge:
// first |  overlap  | second
func mosaicRight(a, b *Dataset, ab, bb Bounds) (*Dataset, error) {
	left := filterX(a, func(x float64) bool { return x < bb.XMin })
	aInt := filterX(a, func(x float64) bool { return x >= bb.XMin })
	bInt := filterX(b, func(x float64) bool { return x <= ab.XMax })
	overlap, err := Mosaic(aInt, bInt)
	if err != nil {
		return nil, err
	}
	right := filterX(b, func(x float64) bool { return x > ab.XMax })
	if len(right.X) == 0 {
		return concatX(left, overlap), nil
	}
	return concatX(left, overlap, right), nil
}

// mosaicTop handles B's bottom edge overlapping A's top edge.
func mosaicTop(a, b *Dataset, ab, bb Bounds) (*Dataset, error) {
	bottom := filterY(a, func(y float64) bool { return y < bb.YMin })
	aInt := filterY(a, func(y float64) bool { return y >= bb.YMin })
	bInt := filterY(b, func(y float64) bool { return y <= ab.YMax })
	overlap, err := Mosaic(aInt, bInt)
	if err != nil {
		return nil, err
	}
	top := filterY(b, func(y float64) bool { return y > ab.YMax })
	if len(top.Y) == 0 {
		return concatY(bottom, overlap), nil
	}
	return concatY(bottom, overlap, top), nil
}

// Merge is the schema-aware merge from : variables common to
// both datasets are reconciled via Mosaic, the rest are carried through
// unchanged, and attribute conflicts are resolved by override (the
// attrsOverride dataset's attrs win). With a nil attrsOverride the result
// keeps a's attrs when the datasets share no variables, and otherwise the
// attrs Mosaic returns for the shared variables.
func Merge(a, b *Dataset, attrsOverride *Dataset) (*Dataset, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	common := commonVars(a, b)
	var overrideAttrs map[string]interface{}
	if attrsOverride != nil {
		overrideAttrs = attrsOverride.Attrs
	}

	if len(common) == 0 {
		return CombineByCoords(a, b, overrideAttrs), nil
	}

	aCommon, aRest := partition(a, common)
	bCommon, bRest := partition(b, common)

	mosaicked, err := Mosaic(aCommon, bCommon)
	if err != nil {
		return nil, err
	}
	if overrideAttrs != nil {
		mosaicked.Attrs = overrideAttrs
	}

	merged := CombineByCoords(mosaicked, aRest, mosaicked.Attrs)
	merged = CombineByCoords(merged, bRest, mosaicked.Attrs)
	return merged, nil
}

func commonVars(a, b *Dataset) []string {
	var out []string
	for name := range a.Vars {
		if _, ok := b.Vars[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func partition(d *Dataset, names []string) (common, rest *Dataset) {
	in := map[string]struct{}{}
	for _, n := range names {
		in[n] = struct{}{}
	}
	common = &Dataset{X: d.X, Y: d.Y, Vars: map[string]*ndarray.Array{}, Attrs: d.Attrs}
	rest = &Dataset{X: d.X, Y: d.Y, Vars: map[string]*ndarray.Array{}, Attrs: d.Attrs}
	for name, arr := range d.Vars {
		if _, ok := in[name]; ok {
			common.Vars[name] = arr
		} else {
			rest.Vars[name] = arr
		}
	}
	return common, rest
}
