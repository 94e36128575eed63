package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	p, err := ParsePath("/World/Chair/")
	require.NoError(t, err)
	assert.Equal(t, Path("/World/Chair"), p)

	for _, bad := range []string{"", "World", "/World//Chair", "/World/1Chair", "/World/Ch-air"} {
		_, err := ParsePath(bad)
		assert.Truef(t, errors.Is(err, ErrInvalidPath), "ParsePath(%q) err = %v", bad, err)
	}
}

func TestParsePropertyPath(t *testing.T) {
	p, err := ParsePropertyPath("/World/Chair/Mesh.material:binding")
	require.NoError(t, err)
	prim, prop := SplitProperty(p)
	assert.Equal(t, Path("/World/Chair/Mesh"), prim)
	assert.Equal(t, "material:binding", prop)

	_, err = ParsePropertyPath("/World/Chair")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestPathNavigation(t *testing.T) {
	p := MustPath("/World/Chair/Looks")
	assert.Equal(t, "Looks", p.Name())
	assert.Equal(t, Path("/World/Chair"), p.Parent())
	assert.Equal(t, Root, MustPath("/World").Parent())
	assert.Equal(t, Path("/World"), Root.AppendChild("World"))
	assert.Equal(t, 3, p.Depth())
	assert.Equal(t, 0, Root.Depth())
	assert.Equal(t, "", Root.Name())
}

func TestHasPrefixIsSegmentWise(t *testing.T) {
	assert.True(t, MustPath("/World/Chair/Mesh").HasPrefix("/World/Chair"))
	assert.True(t, MustPath("/World/Chair").HasPrefix("/World/Chair"))
	assert.False(t, MustPath("/World/Chairs").HasPrefix("/World/Chair"))
	assert.True(t, Path("/World/Chair/Mesh.material:binding").HasPrefix("/World/Chair/Mesh"))
	assert.True(t, MustPath("/World").HasPrefix(Root))
}

func TestReplacePrefix(t *testing.T) {
	old := MustPath("/World/Looks/Wood")
	repl := MustPath("/Item_00/Wood")

	tests := []struct {
		in, want Path
	}{
		{"/World/Looks/Wood", "/Item_00/Wood"},
		{"/World/Looks/Wood/Shader", "/Item_00/Wood/Shader"},
		{"/World/Looks/Wood/Shader.outputs:out", "/Item_00/Wood/Shader.outputs:out"},
		{"/World/Looks/Woodland", "/World/Looks/Woodland"},
		{"/World/Looks/Metal", "/World/Looks/Metal"},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.ReplacePrefix(old, repl))
		})
	}
}
