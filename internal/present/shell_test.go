package present

import (
	"bytes"
	"testing"

	"github.com/agentic-research/mme/api"
	"github.com/agentic-research/mme/internal/host"
	"github.com/agentic-research/mme/internal/scene"
	"github.com/agentic-research/mme/internal/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShell(t *testing.T) (*Shell, *host.Host, *bytes.Buffer) {
	t.Helper()
	s := scene.NewStage()
	s.SetDefaultPrim("World")
	for _, d := range []struct{ path, typ string }{
		{"/World", "Xform"},
		{"/World/Chair", "Xform"},
		{"/World/Chair/Looks", "Scope"},
		{"/World/Chair/Looks/Wood", "Material"},
		{"/World/Chair/Mesh", "Mesh"},
		{"/World/Table", "Xform"},
	} {
		_, err := s.Define(scene.MustPath(d.path), d.typ)
		require.NoError(t, err)
	}
	require.NoError(t, s.SetRelationship("/World/Chair/Mesh", api.RelMaterialBinding,
		[]scene.Path{"/World/Chair/Looks/Wood"}))

	h := host.New(s, nil, nil)
	e := variant.NewEngine(s, h.Tagged("shell-test"), "shell-test", nil)
	var buf bytes.Buffer
	return NewShell(s, e, h, &buf, nil), h, &buf
}

func TestShell_DefaultView(t *testing.T) {
	sh, _, buf := newTestShell(t)
	sh.ShowDefault()
	assert.Equal(t, "Select an object with a Looks folder.\nViewport UI: off\n", buf.String())
}

func TestShell_ObjectWithoutLooks(t *testing.T) {
	sh, _, buf := newTestShell(t)
	sh.ShowObject("/World/Table")
	assert.Equal(t, "Object: /World/Table\n  no Looks folder\n", buf.String())
}

func TestShell_Actions(t *testing.T) {
	sh, h, buf := newTestShell(t)

	_, err := sh.AddVariant()
	assert.ErrorIs(t, err, scene.ErrNotFound)

	sh.ShowObject("/World/Chair")
	assert.Equal(t, "Object: /World/Chair\nActive materials:\n  /World/Chair/Looks/Wood\nVariants:\n  (none)\n", buf.String())

	buf.Reset()
	name, err := sh.AddVariant()
	require.NoError(t, err)
	assert.Equal(t, "Look_1", name)
	assert.Equal(t, "Object: /World/Chair\n"+
		"Active materials:\n  /World/Chair/Looks/MME/Look_1/Wood\n"+
		"Variants:\n  [ ] Original\n  [x] Look_1\n", buf.String())

	buf.Reset()
	require.NoError(t, sh.RenameVariant("Look_1", "Oak"))
	require.NoError(t, sh.EnableVariant(""))
	assert.Contains(t, buf.String(), "[x] Original\n  [ ] Look_1 (Oak)\n")

	require.NoError(t, sh.SelectMaterial("/World/Chair/Mesh"))
	assert.Equal(t, []scene.Path{"/World/Chair/Looks/Wood"}, h.Selection())

	buf.Reset()
	require.NoError(t, sh.DeleteVariant("Look_1"))
	assert.Equal(t, "Object: /World/Chair\n"+
		"Active materials:\n  /World/Chair/Looks/Wood\n"+
		"Variants:\n  [x] Original\n", buf.String())
}

func TestShell_ViewportToggle(t *testing.T) {
	sh, _, buf := newTestShell(t)
	require.NoError(t, sh.SetViewportUI(true))
	sh.ShowDefault()
	assert.Contains(t, buf.String(), "Viewport UI: on")
}
