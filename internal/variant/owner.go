package variant

import (
	"errors"
	"fmt"

	"github.com/agentic-research/mme/api"
	"github.com/agentic-research/mme/internal/scene"
)

// ErrUnownedSelection is returned for prims that belong to no object.
var ErrUnownedSelection = errors.New("selection has no owning object")

// Owner resolves path to the object whose materials it belongs to.
//
// An Xform is its own owner. Meshes, scopes, materials and shaders walk up to
// the nearest Xform ancestor that has a Looks child; when there is none, the
// conventional layout is assumed (mesh and scope under the object, material
// under Looks, shader under its material).
func Owner(s *scene.Stage, path scene.Path) (scene.Path, error) {
	p, err := s.Prim(path)
	if err != nil {
		return "", err
	}

	var hops int
	switch p.Kind {
	case scene.KindXform:
		return p.Path, nil
	case scene.KindMesh, scene.KindScope:
		hops = 1
	case scene.KindMaterial:
		hops = 2
	case scene.KindShader:
		hops = 3
	default:
		return "", fmt.Errorf("%w: %s is %q", ErrUnownedSelection, path, p.TypeName)
	}

	for q := p.Path.Parent(); !q.IsRoot(); q = q.Parent() {
		anc, err := s.Prim(q)
		if err != nil {
			break
		}
		if anc.Kind == scene.KindXform && anc.HasChild(api.MaterialsFolder) {
			return q, nil
		}
	}

	owner := p.Path
	for i := 0; i < hops; i++ {
		owner = owner.Parent()
	}
	if owner.IsRoot() {
		return "", fmt.Errorf("%w: %s", ErrUnownedSelection, path)
	}
	return owner, nil
}
