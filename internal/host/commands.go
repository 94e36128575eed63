package host

import (
	"fmt"
	"strconv"

	"github.com/agentic-research/mme/api"
	"github.com/agentic-research/mme/internal/event"
	"github.com/agentic-research/mme/internal/scene"
	"go.uber.org/zap"
)

// Builtin command names.
const (
	CmdCreatePrim      = "CreatePrim"
	CmdDeletePrims     = "DeletePrims"
	CmdMovePrim        = "MovePrim"
	CmdTransformPrim   = "TransformPrim"
	CmdCreateAttribute = "CreateUsdAttributeOnPath"
	CmdChangeProperty  = "ChangeProperty"
	CmdBindMaterial    = "BindMaterial"
	CmdSelectPrims     = "SelectPrims"
	CmdImportLayer     = "ImportLayer"
	CmdUndo            = "Undo"
	CmdDiagnostic      = "Diagnostic"
)

// AttrTranslate is the attribute TransformPrim authors.
const AttrTranslate = "xformOp:translate"

func registerBuiltins(h *Host) {
	h.Register(CmdCreatePrim, cmdCreatePrim)
	h.Register(CmdDeletePrims, cmdDeletePrims)
	h.Register(CmdMovePrim, cmdMovePrim)
	h.Register(CmdTransformPrim, cmdTransformPrim)
	h.Register(CmdCreateAttribute, cmdCreateAttribute)
	h.Register(CmdChangeProperty, cmdChangeProperty)
	h.Register(CmdBindMaterial, cmdBindMaterial)
	h.Register(CmdSelectPrims, cmdSelectPrims)
	h.Register(CmdImportLayer, cmdImportLayer)
	h.Register(CmdUndo, cmdUndo)
	h.Register(CmdDiagnostic, cmdDiagnostic)
}

// cmdCreatePrim defines prim_path as prim_type (default Xform). Without a
// prim_path a unique child of the default prim is named after the type.
func cmdCreatePrim(h *Host, args Args) (any, error) {
	typeName, err := args.StringOr("prim_type", "Xform")
	if err != nil {
		return nil, err
	}
	var path scene.Path
	if args.Has("prim_path") {
		if path, err = args.Path("prim_path"); err != nil {
			return nil, err
		}
	} else {
		parent := h.stage.DefaultPrimPath()
		if !h.stage.Has(parent) {
			parent = scene.Root
		}
		path = uniqueChild(h.stage, parent, typeName)
	}
	if _, err := h.stage.Define(path, typeName); err != nil {
		return nil, err
	}
	if sel, _ := args.BoolOr("select_new_prim", false); sel {
		h.selection = []scene.Path{path}
	}
	return path, nil
}

func uniqueChild(s *scene.Stage, parent scene.Path, base string) scene.Path {
	if base == "" {
		base = "Prim"
	}
	p := parent.AppendChild(base)
	for i := 1; s.Has(p); i++ {
		p = parent.AppendChild(base + "_" + strconv.Itoa(i))
	}
	return p
}

func cmdDeletePrims(h *Host, args Args) (any, error) {
	paths, err := args.Paths("paths")
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if !h.stage.Has(p) {
			return nil, fmt.Errorf("%w: %s", scene.ErrNotFound, p)
		}
	}
	for _, p := range paths {
		// An ancestor listed earlier may already have taken p with it.
		if !h.stage.Has(p) {
			continue
		}
		if err := h.stage.Remove(p); err != nil {
			return nil, err
		}
	}
	h.selection = pruneSelection(h.stage, h.selection)
	return nil, nil
}

func cmdMovePrim(h *Host, args Args) (any, error) {
	from, err := args.Path("path_from")
	if err != nil {
		return nil, err
	}
	to, err := args.Path("path_to")
	if err != nil {
		return nil, err
	}
	if err := h.stage.Move(from, to); err != nil {
		return nil, err
	}
	for i, p := range h.selection {
		if p.HasPrefix(from) {
			h.selection[i] = p.ReplacePrefix(from, to)
		}
	}
	return to, nil
}

func cmdTransformPrim(h *Host, args Args) (any, error) {
	path, err := args.Path("path")
	if err != nil {
		return nil, err
	}
	v, ok := args["translate"]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrBadArgs, "translate")
	}
	if _, err := h.stage.CreateAttribute(path, AttrTranslate, scene.TypeFloat3, false, scene.Varying); err != nil {
		return nil, err
	}
	return nil, h.stage.SetAttribute(path, AttrTranslate, v)
}

func cmdCreateAttribute(h *Host, args Args) (any, error) {
	full, err := args.PropertyPath("attr_path")
	if err != nil {
		return nil, err
	}
	prim, name := scene.SplitProperty(full)

	var t scene.ValueType
	switch v := args["attr_type"].(type) {
	case scene.ValueType:
		t = v
	case string:
		if t, err = scene.ParseValueType(v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadArgs, err)
		}
	default:
		return nil, fmt.Errorf("%w: attr_type is %T", ErrBadArgs, v)
	}

	custom, err := args.BoolOr("custom", true)
	if err != nil {
		return nil, err
	}
	variability := scene.Varying
	switch v := args["variability"].(type) {
	case nil:
	case scene.Variability:
		variability = v
	case string:
		if v == "uniform" {
			variability = scene.Uniform
		}
	default:
		return nil, fmt.Errorf("%w: variability is %T", ErrBadArgs, v)
	}

	if _, err := h.stage.CreateAttribute(prim, name, t, custom, variability); err != nil {
		return nil, err
	}
	return full, nil
}

func cmdChangeProperty(h *Host, args Args) (any, error) {
	full, err := args.PropertyPath("prop_path")
	if err != nil {
		return nil, err
	}
	v, ok := args["value"]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrBadArgs, "value")
	}
	prim, name := scene.SplitProperty(full)
	return nil, h.stage.SetAttribute(prim, name, v)
}

// cmdBindMaterial points prim_path's material:binding at material_path.
// prim_path may name several prims.
func cmdBindMaterial(h *Host, args Args) (any, error) {
	prims, err := args.Paths("prim_path")
	if err != nil {
		return nil, err
	}
	mat, err := args.Path("material_path")
	if err != nil {
		return nil, err
	}
	if !h.stage.Has(mat) {
		return nil, fmt.Errorf("%w: material %s", scene.ErrNotFound, mat)
	}
	for _, p := range prims {
		if err := h.stage.SetRelationship(p, api.RelMaterialBinding, []scene.Path{mat}); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func cmdSelectPrims(h *Host, args Args) (any, error) {
	paths, err := args.Paths("new_selected_paths")
	if err != nil {
		return nil, err
	}
	h.selection = paths
	return nil, nil
}

// cmdImportLayer copies the top-level prims of a parsed layer under root.
// Synthetic Item_NN roots are unwrapped so their children land directly
// under root, and references between imported prims follow them.
func cmdImportLayer(h *Host, args Args) (any, error) {
	layer, ok := args["layer"].(*scene.Stage)
	if !ok || layer == nil {
		return nil, fmt.Errorf("%w: layer is %T", ErrBadArgs, args["layer"])
	}
	root, err := args.PathOr("root", scene.Root)
	if err != nil {
		return nil, err
	}
	if !h.stage.Has(root) {
		return nil, fmt.Errorf("%w: %s", scene.ErrNotFound, root)
	}

	type move struct{ src, dst scene.Path }
	var moves []move
	tops, _ := layer.Children(scene.Root)
	for _, top := range tops {
		srcs := []*scene.Prim{top}
		if scene.IsItemRoot(top) {
			srcs, _ = layer.Children(top.Path)
		}
		for _, src := range srcs {
			moves = append(moves, move{src: src.Path, dst: root.AppendChild(src.Name())})
		}
	}
	seen := make(map[scene.Path]bool, len(moves))
	for _, m := range moves {
		if seen[m.dst] || h.stage.Has(m.dst) {
			return nil, fmt.Errorf("%w: %s", scene.ErrExists, m.dst)
		}
		seen[m.dst] = true
	}

	out := make([]scene.Path, 0, len(moves))
	for _, m := range moves {
		if err := scene.CopySpec(layer, m.src, h.stage, m.dst); err != nil {
			return nil, err
		}
		out = append(out, m.dst)
	}
	for _, m := range moves {
		for _, ref := range moves {
			if err := h.stage.RewriteTargets(m.dst, ref.src, ref.dst); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func cmdUndo(h *Host, _ Args) (any, error) {
	if len(h.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	step := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.stage.Restore(step.snapshot)
	h.selection = step.selection
	h.bus.Publish(event.Event{Type: event.StageReplaced, Data: step.label})
	return step.label, nil
}

func cmdDiagnostic(h *Host, args Args) (any, error) {
	msg, _ := args.StringOr("message", "")
	h.log.Debug("diagnostic", zap.String("message", msg))
	return nil, nil
}

func pruneSelection(s *scene.Stage, sel []scene.Path) []scene.Path {
	out := sel[:0]
	for _, p := range sel {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}
