package variant

import (
	"testing"

	"github.com/agentic-research/mme/api"
	"github.com/agentic-research/mme/internal/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwner(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AddVariant(chair)
	require.NoError(t, err)
	_, err = f.stage.Define("/World/Lamp", "Xform")
	require.NoError(t, err)
	_, err = f.stage.Define("/World/Lamp/Bulb", "Mesh")
	require.NoError(t, err)
	_, err = f.stage.Define("/World/Camera", "Camera")
	require.NoError(t, err)

	for _, tc := range []struct {
		path scene.Path
		want scene.Path
	}{
		{chair, chair},
		{chairMesh, chair},
		{"/World/Chair/Looks", chair},
		{wood, chair},
		{wood + "/PBR", chair},
		{container, chair},
		{container + "/Look_1/Wood/PBR", chair},
		{"/World/Lamp/Bulb", "/World/Lamp"},
	} {
		t.Run(string(tc.path), func(t *testing.T) {
			got, err := Owner(f.stage, tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err = Owner(f.stage, "/World/Camera")
	assert.ErrorIs(t, err, ErrUnownedSelection)
	_, err = Owner(f.stage, "/World/Gone")
	assert.ErrorIs(t, err, scene.ErrNotFound)
}

func TestOwner_TopLevelMesh(t *testing.T) {
	s := scene.NewStage()
	_, err := s.Define("/Ground", "Mesh")
	require.NoError(t, err)
	_, err = Owner(s, "/Ground")
	assert.ErrorIs(t, err, ErrUnownedSelection)
}

func TestRecords(t *testing.T) {
	r := api.MeshDataRecord{Mesh: "/World/Chair/Mesh", Path: "/World/Chair/Looks/Wood"}
	enc := EncodeRecord(r)
	assert.NotContains(t, enc, "/World", "records are not stored in the clear")

	got, err := DecodeRecords([]string{enc, "%%%", "e30="})
	assert.ErrorIs(t, err, ErrBadRecord)
	assert.Equal(t, []api.MeshDataRecord{r}, got)
}

func TestVariantNumber(t *testing.T) {
	for name, want := range map[string]int{"Look_1": 1, "Look_12": 12, "Look_0": 0, "Look_01": 0, "Look_x": 0, "Wood": 0} {
		n, ok := variantNumber(name)
		assert.Equal(t, want != 0, ok, name)
		assert.Equal(t, want, n, name)
	}
}
