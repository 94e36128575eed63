package variant

import (
	"fmt"

	"github.com/agentic-research/mme/api"
	"github.com/agentic-research/mme/internal/scene"
)

// ListVariants describes the object's variant folders ordered by number.
// An object without a container has none.
func (e *Engine) ListVariants(object scene.Path) []api.VariantInfo {
	var out []api.VariantInfo
	for _, v := range e.variants(ContainerPath(object)) {
		info := api.VariantInfo{
			Name:   v.Name(),
			Path:   v.Path.String(),
			Active: e.isActive(v.Path),
		}
		if dn, ok := e.stage.AttributeValue(v.Path, api.AttrDisplayName); ok {
			info.DisplayName, _ = dn.(string)
		}
		out = append(out, info)
	}
	return out
}

// OriginalActive reports whether the container exists and holds the active
// bindings.
func (e *Engine) OriginalActive(object scene.Path) bool {
	return e.isActive(ContainerPath(object))
}

// ActiveVariant returns the active variant name, "" when the original is
// active. ok is false when nothing is active.
func (e *Engine) ActiveVariant(object scene.Path) (name string, ok bool) {
	container := ContainerPath(object)
	target, ok := e.activeTarget(container)
	if !ok {
		return "", false
	}
	if target == container {
		return "", true
	}
	return target.Name(), true
}

// ActiveMaterials returns the distinct materials currently bound to meshes
// under object, in mesh order.
func (e *Engine) ActiveMaterials(object scene.Path) []scene.Path {
	_, mats := e.capture(object)
	return mats
}

// MaterialOf returns the material bound to mesh.
func (e *Engine) MaterialOf(mesh scene.Path) (scene.Path, bool) {
	return e.boundMaterial(mesh)
}

// RenameVariant changes a variant's display label. The folder keeps its name.
func (e *Engine) RenameVariant(object scene.Path, name, display string) error {
	path := VariantPath(object, name)
	if _, ok := variantNumber(name); !ok || !e.stage.Has(path) {
		return fmt.Errorf("%w: %s", ErrNoVariant, path)
	}
	return e.setAttr(path, api.AttrDisplayName, scene.TypeString, display)
}

// ViewportUIEnabled reads the global overlay toggle on the default prim.
func (e *Engine) ViewportUIEnabled() bool {
	v, ok := e.stage.AttributeValue(e.stage.DefaultPrimPath(), api.AttrViewportUI)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// SetViewportUI writes the global overlay toggle.
func (e *Engine) SetViewportUI(on bool) error {
	root := e.stage.DefaultPrimPath()
	if root.IsRoot() || !e.stage.Has(root) {
		return fmt.Errorf("%w: default prim %q", scene.ErrNotFound, e.stage.DefaultPrim())
	}
	return e.setAttr(root, api.AttrViewportUI, scene.TypeBool, on)
}
