package host

import (
	"testing"

	"github.com/agentic-research/mme/api"
	"github.com/agentic-research/mme/internal/event"
	"github.com/agentic-research/mme/internal/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestHost(t *testing.T) *Host {
	t.Helper()
	s := scene.NewStage()
	s.SetDefaultPrim("World")
	_, err := s.Define("/World", "Xform")
	require.NoError(t, err)
	return New(s, nil, zaptest.NewLogger(t))
}

func TestHost_CreatePrimAndHistory(t *testing.T) {
	h := newTestHost(t)

	res, err := h.Execute(CmdCreatePrim, Args{"prim_path": "/World/Chair", "prim_type": "Xform"})
	require.NoError(t, err)
	assert.Equal(t, scene.Path("/World/Chair"), res)

	res, err = h.Execute(CmdCreatePrim, Args{"prim_type": "Mesh"})
	require.NoError(t, err)
	assert.Equal(t, scene.Path("/World/Mesh"), res)
	res, err = h.Execute(CmdCreatePrim, Args{"prim_type": "Mesh"})
	require.NoError(t, err)
	assert.Equal(t, scene.Path("/World/Mesh_1"), res)

	hist := h.History()
	require.Len(t, hist, 3)
	assert.Equal(t, CmdCreatePrim, hist[0].Name)
	assert.Greater(t, hist[0].Seq, hist[2].Seq)
	assert.Equal(t, 0, hist[0].Level)
	assert.Empty(t, hist[0].Origin)
}

func TestHost_FailedCommandNotRecorded(t *testing.T) {
	h := newTestHost(t)
	_, err := h.Execute(CmdCreatePrim, Args{"prim_path": "/Nope/Chair"})
	assert.ErrorIs(t, err, scene.ErrNotFound)
	assert.Contains(t, err.Error(), CmdCreatePrim)
	assert.Empty(t, h.History())
	assert.False(t, h.CanUndo())

	_, err = h.Execute("Frobnicate", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestHost_UndoRestoresSnapshot(t *testing.T) {
	h := newTestHost(t)
	_, err := h.Execute(CmdCreatePrim, Args{"prim_path": "/World/Chair"})
	require.NoError(t, err)
	require.True(t, h.Stage().Has("/World/Chair"))

	require.NoError(t, h.Undo())
	assert.False(t, h.Stage().Has("/World/Chair"))
	assert.Equal(t, CmdUndo, h.History()[0].Name)

	assert.ErrorIs(t, h.Undo(), ErrNothingToUndo)
}

func TestHost_GroupIsOneUndoStep(t *testing.T) {
	h := newTestHost(t)
	err := h.Group(func() error {
		if _, err := h.Execute(CmdCreatePrim, Args{"prim_path": "/World/A"}); err != nil {
			return err
		}
		return h.Group(func() error {
			_, err := h.Execute(CmdCreatePrim, Args{"prim_path": "/World/B"})
			return err
		})
	})
	require.NoError(t, err)
	require.True(t, h.Stage().Has("/World/B"))

	require.NoError(t, h.Undo())
	assert.False(t, h.Stage().Has("/World/A"))
	assert.False(t, h.Stage().Has("/World/B"))
	assert.False(t, h.CanUndo())
}

func TestHost_EmptyGroupAddsNoStep(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.Group(func() error { return nil }))
	assert.False(t, h.CanUndo())
}

func TestHost_TaggedStampsOrigin(t *testing.T) {
	h := newTestHost(t)
	var seen []Entry
	h.Bus().Subscribe(event.CommandExecuted, func(e event.Event) {
		seen = append(seen, e.Data.(Entry))
	})

	exec := h.Tagged("engine-1")
	require.NoError(t, exec.Group(func() error {
		_, err := h.Execute(CmdCreatePrim, Args{"prim_path": "/World/A"})
		return err
	}))
	_, err := h.Execute(CmdCreatePrim, Args{"prim_path": "/World/B"})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "engine-1", seen[0].Origin)
	assert.Empty(t, seen[1].Origin)
}

func TestHost_NestedCommandLevel(t *testing.T) {
	h := newTestHost(t)
	h.Register("Outer", func(h *Host, _ Args) (any, error) {
		return h.Execute(CmdCreatePrim, Args{"prim_path": "/World/Inner"})
	})
	_, err := h.Execute("Outer", nil)
	require.NoError(t, err)

	hist := h.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "Outer", hist[0].Name)
	assert.Equal(t, 0, hist[0].Level)
	assert.Equal(t, CmdCreatePrim, hist[1].Name)
	assert.Equal(t, 1, hist[1].Level)

	require.NoError(t, h.Undo())
	assert.False(t, h.Stage().Has("/World/Inner"))
}

func TestHost_BindMaterial(t *testing.T) {
	h := newTestHost(t)
	for _, a := range []Args{
		{"prim_path": "/World/Looks", "prim_type": "Scope"},
		{"prim_path": "/World/Looks/Wood", "prim_type": "Material"},
		{"prim_path": "/World/Mesh", "prim_type": "Mesh"},
	} {
		_, err := h.Execute(CmdCreatePrim, a)
		require.NoError(t, err)
	}

	_, err := h.Execute(CmdBindMaterial, Args{"prim_path": "/World/Mesh", "material_path": "/World/Looks/Wood"})
	require.NoError(t, err)
	assert.Equal(t, []scene.Path{"/World/Looks/Wood"}, h.Stage().RelationshipTargets("/World/Mesh", api.RelMaterialBinding))

	_, err = h.Execute(CmdBindMaterial, Args{"prim_path": "/World/Mesh", "material_path": "/World/Looks/Gone"})
	assert.ErrorIs(t, err, scene.ErrNotFound)
}

func TestHost_AttributeCommands(t *testing.T) {
	h := newTestHost(t)
	_, err := h.Execute(CmdCreateAttribute, Args{
		"attr_path":   "/World.isActive",
		"attr_type":   scene.TypeBool,
		"custom":      true,
		"variability": scene.Uniform,
	})
	require.NoError(t, err)
	_, err = h.Execute(CmdChangeProperty, Args{"prop_path": "/World.isActive", "value": true})
	require.NoError(t, err)
	v, ok := h.Stage().AttributeValue("/World", "isActive")
	require.True(t, ok)
	assert.Equal(t, true, v)

	_, err = h.Execute(CmdChangeProperty, Args{"prop_path": "/World.isActive", "value": "yes"})
	assert.ErrorIs(t, err, scene.ErrTypeMismatch)

	_, err = h.Execute(CmdTransformPrim, Args{"path": "/World", "translate": []any{1.0, 2.0, 3.0}})
	require.NoError(t, err)
	v, ok = h.Stage().AttributeValue("/World", AttrTranslate)
	require.True(t, ok)
	assert.Equal(t, [3]float64{1, 2, 3}, v)
}

func TestHost_SelectionFollowsEdits(t *testing.T) {
	h := newTestHost(t)
	_, err := h.Execute(CmdCreatePrim, Args{"prim_path": "/World/Chair", "select_new_prim": true})
	require.NoError(t, err)
	assert.Equal(t, []scene.Path{"/World/Chair"}, h.Selection())

	_, err = h.Execute(CmdMovePrim, Args{"path_from": "/World/Chair", "path_to": "/World/Seat"})
	require.NoError(t, err)
	assert.Equal(t, []scene.Path{"/World/Seat"}, h.Selection())

	_, err = h.Execute(CmdDeletePrims, Args{"paths": []string{"/World/Seat"}})
	require.NoError(t, err)
	assert.Empty(t, h.Selection())

	_, err = h.Execute(CmdSelectPrims, Args{"new_selected_paths": []any{"/World"}})
	require.NoError(t, err)
	assert.Equal(t, []scene.Path{"/World"}, h.Selection())
}

func TestHost_ImportLayerUnwrapsItems(t *testing.T) {
	h := newTestHost(t)
	_, err := h.Execute(CmdCreatePrim, Args{"prim_path": "/World/Dest", "prim_type": "Scope"})
	require.NoError(t, err)

	layer := scene.NewStage()
	for _, d := range []struct{ path, typ string }{
		{"/Item_00", ""},
		{"/Item_00/Wood", "Material"},
		{"/Item_00/Wood/PBR", "Shader"},
		{"/Item_01", ""},
		{"/Item_01/Metal", "Material"},
	} {
		_, err := layer.Define(scene.MustPath(d.path), d.typ)
		require.NoError(t, err)
	}
	_, err = layer.CreateAttribute("/Item_00/Wood", "outputs:surface", scene.TypeToken, false, scene.Varying)
	require.NoError(t, err)
	require.NoError(t, layer.SetConnections("/Item_00/Wood", "outputs:surface",
		[]scene.Path{"/Item_00/Wood/PBR.outputs:out"}))

	res, err := h.Execute(CmdImportLayer, Args{"layer": layer, "root": "/World/Dest"})
	require.NoError(t, err)
	assert.Equal(t, []scene.Path{"/World/Dest/Wood", "/World/Dest/Metal"}, res)

	wood, err := h.Stage().Prim("/World/Dest/Wood")
	require.NoError(t, err)
	assert.Equal(t, []scene.Path{"/World/Dest/Wood/PBR.outputs:out"}, wood.Attribute("outputs:surface").Connections)
	assert.False(t, h.Stage().Has("/World/Dest/Item_00"))

	_, err = h.Execute(CmdImportLayer, Args{"layer": layer, "root": "/World/Dest"})
	assert.ErrorIs(t, err, scene.ErrExists)
}
