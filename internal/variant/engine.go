// Package variant keeps alternate sets of material bindings ("looks") for an
// object's meshes inside the scene itself.
//
// Layout under an object:
//
//	<object>/Looks/MME            Scope  isActive, meshData (original bindings)
//	<object>/Looks/MME/Look_<N>   Scope  isActive, meshData, displayName, cloned materials
//
// At most one of the container and its variants has isActive set. meshData
// is a string array of base64(JSON) {mesh, path} records.
package variant

import (
	"errors"
	"fmt"

	"github.com/agentic-research/mme/api"
	"github.com/agentic-research/mme/internal/host"
	"github.com/agentic-research/mme/internal/primtext"
	"github.com/agentic-research/mme/internal/scene"
	"go.uber.org/zap"
)

var (
	ErrNoMaterialsFolder = errors.New("object has no Looks folder")
	ErrNoContainer       = errors.New("object has no variant container")
	ErrNoVariant         = errors.New("no such variant")
	ErrImport            = errors.New("material clone import failed")
)

// Engine runs variant operations against one stage. Every mutation goes
// through exec, which must stamp commands with Origin so change observers
// can tell the engine's own edits from the user's.
type Engine struct {
	stage  *scene.Stage
	exec   host.Executor
	origin string
	log    *zap.Logger
}

// NewEngine returns an engine that reads stage and writes through exec.
func NewEngine(stage *scene.Stage, exec host.Executor, origin string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{stage: stage, exec: exec, origin: origin, log: log}
}

// Origin is the correlation id stamped on the engine's commands.
func (e *Engine) Origin() string { return e.origin }

// capture reads the current binding of every mesh under object. It returns
// one record per bound mesh and the distinct bound materials in first-seen
// order. Unresolvable bindings are skipped.
func (e *Engine) capture(object scene.Path) ([]api.MeshDataRecord, []scene.Path) {
	var recs []api.MeshDataRecord
	var mats []scene.Path
	seen := map[scene.Path]bool{}
	for _, m := range e.stage.Descendants(object, scene.KindMesh) {
		mat, ok := e.boundMaterial(m.Path)
		if !ok {
			continue
		}
		if !e.stage.Has(mat) {
			e.log.Warn("skipping unresolved binding",
				zap.String("mesh", m.Path.String()),
				zap.String("path", mat.String()))
			continue
		}
		recs = append(recs, api.MeshDataRecord{Mesh: m.Path.String(), Path: mat.String()})
		if !seen[mat] {
			seen[mat] = true
			mats = append(mats, mat)
		}
	}
	return recs, mats
}

// AddVariant captures the object's current bindings into a new Look_N
// folder holding clones of the bound materials, rebinds the meshes to the
// clones and makes the new variant the active one. On first use the
// container is created and the pre-existing bindings become the original.
// It returns the new variant's name.
func (e *Engine) AddVariant(object scene.Path) (string, error) {
	if !e.stage.Has(LooksPath(object)) {
		return "", fmt.Errorf("%w: %s", ErrNoMaterialsFolder, object)
	}
	recs, mats := e.capture(object)
	container := ContainerPath(object)

	var name string
	err := e.exec.Group(func() error {
		if !e.stage.Has(container) {
			if err := e.createPrim(container, "Scope"); err != nil {
				return err
			}
			if err := e.setAttr(container, api.AttrIsActive, scene.TypeBool, true); err != nil {
				return err
			}
			if err := e.setRecords(container, recs); err != nil {
				return err
			}
		}

		name = e.nextName(container)
		folder := container.AppendChild(name)
		if err := e.createPrim(folder, "Scope"); err != nil {
			return err
		}
		if err := e.setAttr(folder, api.AttrDisplayName, scene.TypeString, name); err != nil {
			return err
		}
		if err := e.cloneInto(folder, mats); err != nil {
			return err
		}
		cloned, err := e.rebindToClones(folder, recs)
		if err != nil {
			return err
		}
		if err := e.setRecords(folder, cloned); err != nil {
			return err
		}
		return e.setActive(container, name)
	})
	if err != nil {
		return "", fmt.Errorf("add variant to %s: %w", object, err)
	}
	e.log.Info("variant added", zap.String("object", object.String()), zap.String("variant", name))
	return name, nil
}

// EnableVariant makes name the active variant, or restores the original
// bindings when name is "". Missing structure or empty meshData is a no-op.
// Records whose mesh or material no longer resolves are skipped.
func (e *Engine) EnableVariant(object scene.Path, name string) error {
	container := ContainerPath(object)
	if !e.stage.Has(container) {
		e.log.Debug("no variant container", zap.String("object", object.String()))
		return nil
	}
	target := container
	if name != "" {
		target = container.AppendChild(name)
		if !e.stage.Has(target) {
			return fmt.Errorf("%w: %s", ErrNoVariant, target)
		}
	}
	recs, _ := e.records(target)
	if len(recs) == 0 {
		e.log.Debug("no mesh data", zap.String("path", target.String()))
		return nil
	}

	return e.exec.Group(func() error {
		if err := e.setActive(container, name); err != nil {
			return err
		}
		for _, r := range recs {
			mesh := scene.Path(r.Mesh)
			mat := scene.Path(r.Path)
			if name != "" {
				mat = target.AppendChild(mat.Name())
			}
			if !e.stage.Has(mesh) || !e.stage.Has(mat) {
				e.log.Warn("skipping stale record",
					zap.String("mesh", r.Mesh),
					zap.String("path", mat.String()))
				continue
			}
			if err := e.bind(mesh, mat); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteVariant removes a variant folder. No other variant is activated in
// its place, even when it was the active one.
func (e *Engine) DeleteVariant(path scene.Path) error {
	p, err := e.stage.Prim(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoVariant, path)
	}
	if _, ok := variantNumber(p.Name()); !ok || path.Parent().Name() != api.Container {
		return fmt.Errorf("%w: %s is not a variant folder", ErrNoVariant, path)
	}
	if _, err := e.exec.Execute(host.CmdDeletePrims, host.Args{"paths": []scene.Path{path}}); err != nil {
		return err
	}
	e.log.Info("variant deleted", zap.String("path", path.String()))
	return nil
}

// Reconcile folds a user's material binding of mesh into the active
// variant's meshData. When a cloned variant is active its materials are
// re-cloned from their current locations so the variant stays
// self-contained, and the meshes are rebound to the fresh clones. Nothing
// is written while the active meshData holds entries that do not decode.
func (e *Engine) Reconcile(mesh, material scene.Path) error {
	object, err := Owner(e.stage, mesh)
	if err != nil {
		e.log.Debug("binding outside any object", zap.String("mesh", mesh.String()), zap.Error(err))
		return nil
	}
	container := ContainerPath(object)
	if !e.stage.Has(container) {
		return nil
	}
	active, ok := e.activeTarget(container)
	if !ok {
		return nil
	}

	recs, clean := e.records(active)
	if !clean {
		e.log.Warn("not reconciling over undecodable mesh data",
			zap.String("path", active.String()),
			zap.String("mesh", mesh.String()))
		return nil
	}
	found := false
	for i := range recs {
		if recs[i].Mesh != mesh.String() {
			continue
		}
		found = true
		if recs[i].Path == material.String() {
			return nil
		}
		recs[i].Path = material.String()
	}
	if !found {
		recs = append(recs, api.MeshDataRecord{Mesh: mesh.String(), Path: material.String()})
	}

	return e.exec.Group(func() error {
		if active == container {
			return e.setRecords(container, recs)
		}

		var mats []scene.Path
		seen := map[scene.Path]bool{}
		for _, r := range recs {
			p := scene.Path(r.Path)
			if seen[p] {
				continue
			}
			seen[p] = true
			if !e.stage.Has(p) {
				e.log.Warn("skipping stale record", zap.String("mesh", r.Mesh), zap.String("path", r.Path))
				continue
			}
			mats = append(mats, p)
		}
		mats = e.uniqueLeaves(mats)
		text, err := primtext.Export(e.stage, mats)
		if err != nil {
			return err
		}

		children, err := e.stage.Children(active)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			paths := make([]scene.Path, len(children))
			for i, c := range children {
				paths[i] = c.Path
			}
			if _, err := e.exec.Execute(host.CmdDeletePrims, host.Args{"paths": paths}); err != nil {
				return err
			}
		}
		if text != "" {
			if err := primtext.ImportText(e.exec, text, active); err != nil {
				e.log.Warn("clone import failed", zap.String("path", active.String()), zap.Error(err))
				return fmt.Errorf("%w: %v", ErrImport, err)
			}
		}

		cloned, err := e.rebindToClones(active, recs)
		if err != nil {
			return err
		}
		return e.setRecords(active, cloned)
	})
}

// cloneInto copies mats under folder through the prim text codec.
func (e *Engine) cloneInto(folder scene.Path, mats []scene.Path) error {
	text, err := primtext.Export(e.stage, e.uniqueLeaves(mats))
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	if err := primtext.ImportText(e.exec, text, folder); err != nil {
		e.log.Warn("clone import failed", zap.String("path", folder.String()), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrImport, err)
	}
	return nil
}

// uniqueLeaves drops materials whose leaf name was already taken; clones
// are matched to records by leaf name, so the first one wins.
func (e *Engine) uniqueLeaves(mats []scene.Path) []scene.Path {
	seen := map[string]bool{}
	out := mats[:0:0]
	for _, m := range mats {
		if seen[m.Name()] {
			e.log.Warn("material leaf name collision", zap.String("path", m.String()))
			continue
		}
		seen[m.Name()] = true
		out = append(out, m)
	}
	return out
}

// rebindToClones binds each record's mesh to the clone under folder that
// shares its material's leaf name and returns the records rewritten to the
// clone paths. Records that cannot be resolved are kept unchanged.
func (e *Engine) rebindToClones(folder scene.Path, recs []api.MeshDataRecord) ([]api.MeshDataRecord, error) {
	out := make([]api.MeshDataRecord, 0, len(recs))
	for _, r := range recs {
		mesh := scene.Path(r.Mesh)
		clone := folder.AppendChild(scene.Path(r.Path).Name())
		if !e.stage.Has(mesh) || !e.stage.Has(clone) {
			e.log.Warn("skipping stale record", zap.String("mesh", r.Mesh), zap.String("path", clone.String()))
			out = append(out, r)
			continue
		}
		if err := e.bind(mesh, clone); err != nil {
			return nil, err
		}
		out = append(out, api.MeshDataRecord{Mesh: r.Mesh, Path: clone.String()})
	}
	return out, nil
}
