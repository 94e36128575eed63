package variant

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agentic-research/mme/api"
	"github.com/agentic-research/mme/internal/host"
	"github.com/agentic-research/mme/internal/scene"
	"go.uber.org/zap"
)

// Layout helpers. Reads go straight to the stage; writes go through host
// commands so they land in history and undo.

// LooksPath is object/Looks.
func LooksPath(object scene.Path) scene.Path { return object.AppendChild(api.MaterialsFolder) }

// ContainerPath is object/Looks/MME.
func ContainerPath(object scene.Path) scene.Path {
	return LooksPath(object).AppendChild(api.Container)
}

// VariantPath is object/Looks/MME/<name>.
func VariantPath(object scene.Path, name string) scene.Path {
	return ContainerPath(object).AppendChild(name)
}

// variantNumber returns N for a Look_N name.
func variantNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, api.VariantPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(name[len(api.VariantPrefix):])
	if err != nil || n < 1 || strconv.Itoa(n) != name[len(api.VariantPrefix):] {
		return 0, false
	}
	return n, true
}

// variants lists the Look_N children of container ordered by N.
func (e *Engine) variants(container scene.Path) []*scene.Prim {
	children, err := e.stage.Children(container)
	if err != nil {
		return nil
	}
	var out []*scene.Prim
	for _, c := range children {
		if _, ok := variantNumber(c.Name()); ok {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := variantNumber(out[i].Name())
		b, _ := variantNumber(out[j].Name())
		return a < b
	})
	return out
}

// nextName returns Look_N for the smallest N not in use.
func (e *Engine) nextName(container scene.Path) string {
	used := map[int]bool{}
	for _, v := range e.variants(container) {
		n, _ := variantNumber(v.Name())
		used[n] = true
	}
	n := 1
	for used[n] {
		n++
	}
	return api.VariantPrefix + strconv.Itoa(n)
}

func (e *Engine) isActive(path scene.Path) bool {
	v, ok := e.stage.AttributeValue(path, api.AttrIsActive)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// activeTarget returns the container when the original bindings are active,
// otherwise the active variant folder.
func (e *Engine) activeTarget(container scene.Path) (scene.Path, bool) {
	if e.isActive(container) {
		return container, true
	}
	for _, v := range e.variants(container) {
		if e.isActive(v.Path) {
			return v.Path, true
		}
	}
	return "", false
}

// records decodes path's meshData. clean is false when some entries did not
// decode; those are left out of recs, so recs must not be written back.
func (e *Engine) records(path scene.Path) (recs []api.MeshDataRecord, clean bool) {
	v, ok := e.stage.AttributeValue(path, api.AttrMeshData)
	if !ok {
		return nil, true
	}
	raw, _ := v.([]string)
	recs, err := DecodeRecords(raw)
	if err != nil {
		e.log.Warn("skipping bad mesh data", zap.String("path", path.String()), zap.Error(err))
		return recs, false
	}
	return recs, true
}

// ensureAttr declares path.name unless it already exists with type t.
func (e *Engine) ensureAttr(path scene.Path, name string, t scene.ValueType) error {
	if p, err := e.stage.Prim(path); err == nil {
		if a := p.Attribute(name); a != nil && a.Type == t {
			return nil
		}
	}
	_, err := e.exec.Execute(host.CmdCreateAttribute, host.Args{
		"attr_path":   path.AppendProperty(name),
		"attr_type":   t,
		"custom":      true,
		"variability": scene.Varying,
	})
	return err
}

func (e *Engine) setAttr(path scene.Path, name string, t scene.ValueType, value any) error {
	if err := e.ensureAttr(path, name, t); err != nil {
		return err
	}
	_, err := e.exec.Execute(host.CmdChangeProperty, host.Args{
		"prop_path": path.AppendProperty(name),
		"value":     value,
	})
	return err
}

func (e *Engine) setRecords(path scene.Path, recs []api.MeshDataRecord) error {
	return e.setAttr(path, api.AttrMeshData, scene.TypeStringArray, EncodeRecords(recs))
}

// setActive clears isActive on the container and every variant, then sets
// it on the named variant ("" for the container).
func (e *Engine) setActive(container scene.Path, name string) error {
	targets := []scene.Path{container}
	for _, v := range e.variants(container) {
		targets = append(targets, v.Path)
	}
	for _, p := range targets {
		if err := e.setAttr(p, api.AttrIsActive, scene.TypeBool, false); err != nil {
			return err
		}
	}
	target := container
	if name != "" {
		target = container.AppendChild(name)
	}
	return e.setAttr(target, api.AttrIsActive, scene.TypeBool, true)
}

func (e *Engine) createPrim(path scene.Path, typeName string) error {
	_, err := e.exec.Execute(host.CmdCreatePrim, host.Args{"prim_path": path, "prim_type": typeName})
	return err
}

func (e *Engine) bind(mesh, material scene.Path) error {
	_, err := e.exec.Execute(host.CmdBindMaterial, host.Args{"prim_path": mesh, "material_path": material})
	return err
}

// boundMaterial returns the first material:binding target of mesh.
func (e *Engine) boundMaterial(mesh scene.Path) (scene.Path, bool) {
	targets := e.stage.RelationshipTargets(mesh, api.RelMaterialBinding)
	if len(targets) == 0 {
		return "", false
	}
	return targets[0], true
}
