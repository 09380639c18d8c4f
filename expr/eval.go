package expr

import (
	"math"

	"github.com/dc3/cubebuilder/dataset"
	"github.com/dc3/cubebuilder/errs"
	"github.com/dc3/cubebuilder/model"
	"github.com/dc3/cubebuilder/ndarray"
)

// Eval evaluates node against ds's variables, where every Ref "alias.subband"
// is looked up as the dataset variable named "alias.subband" (the staging
// step names granule variables this way: build's stageFunc keys
// SubbandsRequired by alias+"."+subband).
func Eval(node Node, ds *dataset.Dataset) (*ndarray.Array, error) {
	switch n := node.(type) {
	case Literal:
		shape := append([]int{}, ds.Vars[anyVarName(ds)].Shape...)
		return ndarray.Filled(n.Value, shape...), nil
	case Ref:
		name := n.Alias + "." + n.Subband
		arr, ok := ds.Vars[name]
		if !ok {
			return nil, errs.BadRequestf("expression", "undefined variable %q", name)
		}
		return arr, nil
	case Binary:
		l, err := Eval(n.Left, ds)
		if err != nil {
			return nil, err
		}
		r, err := Eval(n.Right, ds)
		if err != nil {
			return nil, err
		}
		var op func(a, b float64) float64
		switch n.Op {
		case '+':
			op = func(a, b float64) float64 { return a + b }
		case '-':
			op = func(a, b float64) float64 { return a - b }
		case '*':
			op = func(a, b float64) float64 { return a * b }
		case '/':
			op = func(a, b float64) float64 { return a / b }
		}
		out, err := ndarray.BinaryOp(l, r, op)
		if err != nil {
			return nil, errs.MosaickingErrorf("expression", "evaluating binary operation: %v", err)
		}
		return out, nil
	case Call:
		return evalCall(n, ds)
	default:
		return nil, errs.New(errs.InternalErrorKind, "expression", "unhandled AST node type")
	}
}

func evalCall(n Call, ds *dataset.Dataset) (*ndarray.Array, error) {
	args := make([]*ndarray.Array, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, ds)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch n.Name {
	case "min":
		return ndarray.BinaryOp(args[0], args[1], math.Min)
	case "max":
		return ndarray.BinaryOp(args[0], args[1], math.Max)
	case "clip":
		out := args[0].Copy()
		lo, loOK := scalarOf(args[1])
		hi, hiOK := scalarOf(args[2])
		if !loOK || !hiOK {
			return nil, errs.BadRequestf("expression", "clip() bounds must be numeric literals")
		}
		out.Clip(lo, hi)
		return out, nil
	default:
		return nil, errs.BadRequestf("expression", "unknown function %q", n.Name)
	}
}

// scalarOf reports whether arr is uniform (every element equal), returning
// that value; used for clip()'s literal bounds.
func scalarOf(arr *ndarray.Array) (float64, bool) {
	if len(arr.Elements) == 0 {
		return 0, false
	}
	v := arr.Elements[0]
	for _, e := range arr.Elements[1:] {
		if e != v {
			return 0, false
		}
	}
	return v, true
}

func anyVarName(ds *dataset.Dataset) string {
	for name := range ds.Vars {
		return name
	}
	return ""
}

// EvaluateBands evaluates every band descriptor in order against ds,
// applying its clip range if both Min and Max are set, installing the
// result under its declared Name, then restricting ds's variable set to
// exactly the declared band names.
func EvaluateBands(ds *dataset.Dataset, bands []model.BandDescriptor) error {
	for _, b := range bands {
		node, err := Parse(b.Expression)
		if err != nil {
			return err
		}
		result, err := Eval(node, ds)
		if err != nil {
			return err
		}
		if b.HasClip {
			result.Clip(b.Min, b.Max)
		}
		ds.Vars[b.Name] = result
	}

	keep := map[string]bool{}
	for _, b := range bands {
		keep[b.Name] = true
	}
	for name := range ds.Vars {
		if !keep[name] {
			delete(ds.Vars, name)
		}
	}
	return nil
}
