// Package primtext serializes prim subtrees to a self-contained text block
// and instantiates such blocks elsewhere on a stage. It backs the "clone a
// material into a variant folder" step of the variant engine.
//
// The text is HCL syntax behind a one-line format header:
//
//	#sdf 1.0
//	prim "" "Item_00" {
//	  prim "Material" "Wood" {
//	    attribute "outputs:surface" {
//	      type        = "token"
//	      connections = ["/Item_00/Wood/PBR.outputs:out"]
//	    }
//	  }
//	}
package primtext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agentic-research/mme/internal/host"
	"github.com/agentic-research/mme/internal/scene"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Header is prepended to every text block.
const Header = "#sdf 1.0\n"

// ErrParse is returned when text cannot be turned into a layer.
var ErrParse = errors.New("prim text parse failed")

// Export copies the named subtrees into an anonymous layer under synthetic
// roots Item_00, Item_01, ... and rewrites every relationship target and
// attribute connection that pointed into an exported subtree so that it
// points at the copy instead. It returns "" when paths is empty.
func Export(stage *scene.Stage, paths []scene.Path) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}
	flat := stage.Flatten()
	layer := scene.NewStage()

	type mapping struct{ src, dst scene.Path }
	moves := make([]mapping, 0, len(paths))
	for i, p := range paths {
		item := scene.Root.AppendChild(scene.ItemName(i))
		if _, err := layer.Define(item, ""); err != nil {
			return "", err
		}
		dst := item.AppendChild(p.Name())
		if err := scene.CopySpec(flat, p, layer, dst); err != nil {
			return "", fmt.Errorf("export %s: %w", p, err)
		}
		moves = append(moves, mapping{src: p, dst: dst})
	}
	for _, m := range moves {
		if err := layer.RewriteTargets(scene.Root, m.src, m.dst); err != nil {
			return "", err
		}
	}
	return Write(layer), nil
}

// ImportText parses text and asks the host to instantiate it under dest.
func ImportText(exec host.Executor, text string, dest scene.Path) error {
	layer, err := Parse(text)
	if err != nil {
		return err
	}
	if _, err := exec.Execute(host.CmdImportLayer, host.Args{"layer": layer, "root": dest}); err != nil {
		return fmt.Errorf("import under %s: %w", dest, err)
	}
	return nil
}

// Import is ImportText reduced to success/failure. On false the stage has
// not been changed by the parse step; callers should warn, not abort the host.
func Import(exec host.Executor, text string, dest scene.Path) bool {
	return ImportText(exec, text, dest) == nil
}

// Write renders a whole stage (or layer) as text.
func Write(s *scene.Stage) string {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	if def := s.DefaultPrim(); def != "" {
		body.AppendNewBlock("stage", nil).Body().SetAttributeValue("default_prim", cty.StringVal(def))
	}
	roots, _ := s.Children(scene.Root)
	for _, p := range roots {
		writePrim(body, s, p)
	}
	return Header + string(f.Bytes())
}

func writePrim(body *hclwrite.Body, s *scene.Stage, p *scene.Prim) {
	b := body.AppendNewBlock("prim", []string{p.TypeName, p.Name()}).Body()
	for _, a := range p.Attributes() {
		ab := b.AppendNewBlock("attribute", []string{a.Name}).Body()
		ab.SetAttributeValue("type", cty.StringVal(a.Type.String()))
		if a.Value != nil {
			ab.SetAttributeValue("value", toCty(a.Value))
		}
		if a.Custom {
			ab.SetAttributeValue("custom", cty.True)
		}
		if a.Variability == scene.Uniform {
			ab.SetAttributeValue("uniform", cty.True)
		}
		if len(a.Connections) > 0 {
			ab.SetAttributeValue("connections", pathsToCty(a.Connections))
		}
	}
	for _, r := range p.Relationships() {
		b.AppendNewBlock("relationship", []string{r.Name}).Body().
			SetAttributeValue("targets", pathsToCty(r.Targets))
	}
	children, _ := s.Children(p.Path)
	for _, c := range children {
		writePrim(b, s, c)
	}
}

// Parse turns text into an anonymous layer. The format header is added when
// missing.
func Parse(text string) (*scene.Stage, error) {
	if !strings.HasPrefix(text, Header) {
		text = Header + text
	}
	file, diags := hclsyntax.ParseConfig([]byte(text), "layer.sdf", hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrParse, diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected body %T", ErrParse, file.Body)
	}
	if len(body.Attributes) > 0 {
		return nil, fmt.Errorf("%w: top-level attributes are not allowed", ErrParse)
	}

	layer := scene.NewStage()
	for _, blk := range body.Blocks {
		switch blk.Type {
		case "stage":
			if err := readStage(layer, blk); err != nil {
				return nil, err
			}
		case "prim":
			if err := readPrim(layer, scene.Root, blk); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unexpected block %q at %s", ErrParse, blk.Type, blk.DefRange())
		}
	}
	return layer, nil
}

func readStage(layer *scene.Stage, blk *hclsyntax.Block) error {
	if attr, ok := blk.Body.Attributes["default_prim"]; ok {
		v, err := eval(attr)
		if err != nil {
			return err
		}
		if v.Type() != cty.String {
			return fmt.Errorf("%w: default_prim must be a string", ErrParse)
		}
		layer.SetDefaultPrim(v.AsString())
	}
	return nil
}

func readPrim(layer *scene.Stage, parent scene.Path, blk *hclsyntax.Block) error {
	if len(blk.Labels) != 2 {
		return fmt.Errorf("%w: prim block needs a type and a name at %s", ErrParse, blk.DefRange())
	}
	path, err := scene.ParsePath(string(parent.AppendChild(blk.Labels[1])))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	if _, err := layer.Define(path, blk.Labels[0]); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(blk.Body.Attributes) > 0 {
		return fmt.Errorf("%w: prim %s has bare attributes", ErrParse, path)
	}
	for _, child := range blk.Body.Blocks {
		switch child.Type {
		case "attribute":
			err = readAttribute(layer, path, child)
		case "relationship":
			err = readRelationship(layer, path, child)
		case "prim":
			err = readPrim(layer, path, child)
		default:
			err = fmt.Errorf("%w: unexpected block %q in %s", ErrParse, child.Type, path)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func readAttribute(layer *scene.Stage, prim scene.Path, blk *hclsyntax.Block) error {
	if len(blk.Labels) != 1 {
		return fmt.Errorf("%w: attribute block needs a name at %s", ErrParse, blk.DefRange())
	}
	name := blk.Labels[0]
	attrs := blk.Body.Attributes

	typeAttr, ok := attrs["type"]
	if !ok {
		return fmt.Errorf("%w: %s.%s has no type", ErrParse, prim, name)
	}
	tv, err := eval(typeAttr)
	if err != nil {
		return err
	}
	if tv.Type() != cty.String {
		return fmt.Errorf("%w: %s.%s type must be a string", ErrParse, prim, name)
	}
	t, err := scene.ParseValueType(tv.AsString())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	custom, err := boolAttr(attrs, "custom")
	if err != nil {
		return err
	}
	uniform, err := boolAttr(attrs, "uniform")
	if err != nil {
		return err
	}
	variability := scene.Varying
	if uniform {
		variability = scene.Uniform
	}
	if _, err := layer.CreateAttribute(prim, name, t, custom, variability); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	if va, ok := attrs["value"]; ok {
		v, err := eval(va)
		if err != nil {
			return err
		}
		gv, err := fromCty(v)
		if err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrParse, prim, name, err)
		}
		if err := layer.SetAttribute(prim, name, gv); err != nil {
			return fmt.Errorf("%w: %v", ErrParse, err)
		}
	}
	if ca, ok := attrs["connections"]; ok {
		conns, err := pathsAttr(ca)
		if err != nil {
			return err
		}
		if err := layer.SetConnections(prim, name, conns); err != nil {
			return fmt.Errorf("%w: %v", ErrParse, err)
		}
	}
	return nil
}

func readRelationship(layer *scene.Stage, prim scene.Path, blk *hclsyntax.Block) error {
	if len(blk.Labels) != 1 {
		return fmt.Errorf("%w: relationship block needs a name at %s", ErrParse, blk.DefRange())
	}
	var targets []scene.Path
	if ta, ok := blk.Body.Attributes["targets"]; ok {
		var err error
		if targets, err = pathsAttr(ta); err != nil {
			return err
		}
	}
	if err := layer.SetRelationship(prim, blk.Labels[0], targets); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

func eval(attr *hclsyntax.Attribute) (cty.Value, error) {
	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("%w: %s", ErrParse, diags.Error())
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("%w: %s is not a literal", ErrParse, attr.Name)
	}
	return v, nil
}

func boolAttr(attrs hclsyntax.Attributes, name string) (bool, error) {
	attr, ok := attrs[name]
	if !ok {
		return false, nil
	}
	v, err := eval(attr)
	if err != nil {
		return false, err
	}
	if v.Type() != cty.Bool || v.IsNull() {
		return false, fmt.Errorf("%w: %s must be a bool", ErrParse, name)
	}
	return v.True(), nil
}

func pathsAttr(attr *hclsyntax.Attribute) ([]scene.Path, error) {
	v, err := eval(attr)
	if err != nil {
		return nil, err
	}
	gv, err := fromCty(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, attr.Name, err)
	}
	strs, err := scene.Coerce(scene.TypeStringArray, gv)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, attr.Name, err)
	}
	var out []scene.Path
	for _, s := range strs.([]string) {
		out = append(out, scene.Path(s))
	}
	return out, nil
}

// toCty converts a canonical attribute value to a cty value.
func toCty(v any) cty.Value {
	switch t := v.(type) {
	case bool:
		return cty.BoolVal(t)
	case int64:
		return cty.NumberIntVal(t)
	case float64:
		return cty.NumberFloatVal(t)
	case string:
		return cty.StringVal(t)
	case []string:
		if len(t) == 0 {
			return cty.ListValEmpty(cty.String)
		}
		vals := make([]cty.Value, len(t))
		for i, s := range t {
			vals[i] = cty.StringVal(s)
		}
		return cty.ListVal(vals)
	case [3]float64:
		return cty.TupleVal([]cty.Value{
			cty.NumberFloatVal(t[0]), cty.NumberFloatVal(t[1]), cty.NumberFloatVal(t[2]),
		})
	default:
		return cty.NullVal(cty.DynamicPseudoType)
	}
}

// fromCty converts a literal cty value into the generic shapes scene.Coerce accepts.
func fromCty(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsTupleType() || ty.IsListType():
		elems := v.AsValueSlice()
		out := make([]any, 0, len(elems))
		for _, e := range elems {
			ge, err := fromCty(e)
			if err != nil {
				return nil, err
			}
			out = append(out, ge)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
	}
}

func pathsToCty(ps []scene.Path) cty.Value {
	if len(ps) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(ps))
	for i, p := range ps {
		vals[i] = cty.StringVal(string(p))
	}
	return cty.ListVal(vals)
}
