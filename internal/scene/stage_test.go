package scene

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChairStage builds /World/Chair with a Looks folder holding Wood (with a
// shader network) and Metal, and a Mesh bound to Wood.
func newChairStage(t *testing.T) *Stage {
	t.Helper()
	s := NewStage()
	s.SetDefaultPrim("World")
	for _, d := range []struct {
		path, typ string
	}{
		{"/World", "Xform"},
		{"/World/Chair", "Xform"},
		{"/World/Chair/Looks", "Scope"},
		{"/World/Chair/Looks/Wood", "Material"},
		{"/World/Chair/Looks/Wood/PBR", "Shader"},
		{"/World/Chair/Looks/Metal", "Material"},
		{"/World/Chair/Mesh", "Mesh"},
	} {
		_, err := s.Define(MustPath(d.path), d.typ)
		require.NoError(t, err)
	}
	_, err := s.CreateAttribute("/World/Chair/Looks/Wood/PBR", "outputs:out", TypeToken, false, Varying)
	require.NoError(t, err)
	_, err = s.CreateAttribute("/World/Chair/Looks/Wood", "outputs:surface", TypeToken, false, Varying)
	require.NoError(t, err)
	require.NoError(t, s.SetConnections("/World/Chair/Looks/Wood", "outputs:surface",
		[]Path{"/World/Chair/Looks/Wood/PBR.outputs:out"}))
	require.NoError(t, s.SetRelationship("/World/Chair/Mesh", "material:binding", []Path{"/World/Chair/Looks/Wood"}))
	return s
}

func TestStage_DefineRequiresParent(t *testing.T) {
	s := NewStage()
	_, err := s.Define("/World/Chair", "Xform")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Define("/World", "Xform")
	require.NoError(t, err)
	_, err = s.Define("/World", "Xform")
	assert.ErrorIs(t, err, ErrExists)
}

func TestStage_ChildrenKeepOrder(t *testing.T) {
	s := newChairStage(t)
	children, err := s.Children("/World/Chair")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Looks", children[0].Name())
	assert.Equal(t, "Mesh", children[1].Name())
	assert.Equal(t, KindMesh, children[1].Kind)
}

func TestStage_DescendantsUsesKindIndex(t *testing.T) {
	s := newChairStage(t)
	_, err := s.Define("/World/Table", "Xform")
	require.NoError(t, err)
	_, err = s.Define("/World/Table/Top", "Mesh")
	require.NoError(t, err)

	meshes := s.Descendants("/World/Chair", KindMesh)
	require.Len(t, meshes, 1)
	assert.Equal(t, Path("/World/Chair/Mesh"), meshes[0].Path)

	assert.Len(t, s.Descendants("/World/Chair/Looks", KindMaterial), 2)
	assert.Equal(t, 2, s.Count(KindMesh))
	assert.Empty(t, s.Descendants("/World/Chair", KindOther))
}

func TestStage_RemoveDropsSubtreeAndIndex(t *testing.T) {
	s := newChairStage(t)
	require.NoError(t, s.Remove("/World/Chair/Looks/Wood"))

	assert.False(t, s.Has("/World/Chair/Looks/Wood"))
	assert.False(t, s.Has("/World/Chair/Looks/Wood/PBR"))
	assert.Equal(t, 0, s.Count(KindShader))
	looks, err := s.Prim("/World/Chair/Looks")
	require.NoError(t, err)
	assert.Equal(t, []string{"Metal"}, looks.Children)

	assert.ErrorIs(t, s.Remove("/World/Chair/Looks/Wood"), ErrNotFound)
}

func TestStage_MoveRewritesTargets(t *testing.T) {
	s := newChairStage(t)
	require.NoError(t, s.Move("/World/Chair/Looks/Wood", "/World/Chair/Looks/Oak"))

	assert.True(t, s.Has("/World/Chair/Looks/Oak/PBR"))
	assert.Equal(t, []Path{"/World/Chair/Looks/Oak"},
		s.RelationshipTargets("/World/Chair/Mesh", "material:binding"))
	oak, err := s.Prim("/World/Chair/Looks/Oak")
	require.NoError(t, err)
	assert.Equal(t, []Path{"/World/Chair/Looks/Oak/PBR.outputs:out"}, oak.Attribute("outputs:surface").Connections)
	assert.Len(t, s.Descendants("/World/Chair/Looks/Oak", KindShader), 1)
}

func TestStage_AttributeTyping(t *testing.T) {
	s := newChairStage(t)
	_, err := s.CreateAttribute("/World/Chair", "isActive", TypeBool, true, Varying)
	require.NoError(t, err)

	require.NoError(t, s.SetAttribute("/World/Chair", "isActive", true))
	v, ok := s.AttributeValue("/World/Chair", "isActive")
	require.True(t, ok)
	assert.Equal(t, true, v)

	assert.ErrorIs(t, s.SetAttribute("/World/Chair", "isActive", "yes"), ErrTypeMismatch)
	assert.ErrorIs(t, s.SetAttribute("/World/Chair", "missing", true), ErrNoAttr)

	_, err = s.CreateAttribute("/World/Chair", "isActive", TypeString, true, Varying)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestStage_RejectsNonFiniteFloats(t *testing.T) {
	s := newChairStage(t)
	shader := Path("/World/Chair/Looks/Wood/PBR")
	_, err := s.CreateAttribute(shader, "inputs:roughness", TypeFloat, false, Varying)
	require.NoError(t, err)
	_, err = s.CreateAttribute("/World/Chair", "xformOp:translate", TypeFloat3, false, Varying)
	require.NoError(t, err)

	for name, f := range map[string]float64{
		"nan":  math.NaN(),
		"+inf": math.Inf(1),
		"-inf": math.Inf(-1),
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.SetAttribute(shader, "inputs:roughness", f), ErrTypeMismatch)
			assert.ErrorIs(t, s.SetAttribute(shader, "inputs:roughness", float32(f)), ErrTypeMismatch)
			assert.ErrorIs(t, s.SetAttribute("/World/Chair", "xformOp:translate", [3]float64{0, f, 0}), ErrTypeMismatch)
			assert.ErrorIs(t, s.SetAttribute("/World/Chair", "xformOp:translate", []any{0.0, 1.0, f}), ErrTypeMismatch)
		})
	}
	_, ok := s.AttributeValue(shader, "inputs:roughness")
	assert.False(t, ok, "a rejected value is never authored")

	require.NoError(t, s.SetAttribute(shader, "inputs:roughness", math.MaxFloat64))
	v, ok := s.AttributeValue(shader, "inputs:roughness")
	require.True(t, ok)
	assert.Equal(t, math.MaxFloat64, v)
}

func TestStage_FlattenIsIndependent(t *testing.T) {
	s := newChairStage(t)
	flat := s.Flatten()
	require.NoError(t, s.Remove("/World/Chair/Looks"))

	assert.True(t, flat.Has("/World/Chair/Looks/Wood/PBR"))
	assert.Equal(t, "World", flat.DefaultPrim())

	s.Restore(flat)
	assert.True(t, s.Has("/World/Chair/Looks/Metal"))
	assert.Len(t, s.Descendants("/World", KindMaterial), 2)
}

func TestCopySpecSameStage(t *testing.T) {
	s := newChairStage(t)
	require.NoError(t, CopySpec(s, "/World/Chair/Looks/Wood", s, "/World/Chair/Looks/Wood2"))
	require.NoError(t, s.RewriteTargets("/World/Chair/Looks/Wood2", "/World/Chair/Looks/Wood", "/World/Chair/Looks/Wood2"))

	w2, err := s.Prim("/World/Chair/Looks/Wood2")
	require.NoError(t, err)
	assert.Equal(t, []Path{"/World/Chair/Looks/Wood2/PBR.outputs:out"}, w2.Attribute("outputs:surface").Connections)
	w, err := s.Prim("/World/Chair/Looks/Wood")
	require.NoError(t, err)
	assert.Equal(t, []Path{"/World/Chair/Looks/Wood/PBR.outputs:out"}, w.Attribute("outputs:surface").Connections)
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := newChairStage(t)
	_, err := s.CreateAttribute("/World/Chair/Looks", "meshData", TypeStringArray, true, Varying)
	require.NoError(t, err)
	require.NoError(t, s.SetAttribute("/World/Chair/Looks", "meshData", []string{"a", "b"}))
	_, err = s.CreateAttribute("/World/Chair", "xformOp:translate", TypeFloat3, false, Uniform)
	require.NoError(t, err)
	require.NoError(t, s.SetAttribute("/World/Chair", "xformOp:translate", [3]float64{1, 2.5, 0}))

	dbPath := filepath.Join(t.TempDir(), "scene.db")
	require.NoError(t, SaveSQLite(s, dbPath))
	// Saving twice replaces rather than duplicates.
	require.NoError(t, SaveSQLite(s, dbPath))

	got, err := OpenSQLite(dbPath)
	require.NoError(t, err)
	assert.Equal(t, Document(s), Document(got))

	v, ok := got.AttributeValue("/World/Chair", "xformOp:translate")
	require.True(t, ok)
	assert.Equal(t, [3]float64{1, 2.5, 0}, v)
	looks, err := got.Prim("/World/Chair/Looks")
	require.NoError(t, err)
	assert.Equal(t, Varying, looks.Attribute("meshData").Variability)
	chair, err := got.Prim("/World/Chair")
	require.NoError(t, err)
	assert.Equal(t, Uniform, chair.Attribute("xformOp:translate").Variability)
}

func TestOpenSQLiteMissingFile(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}
