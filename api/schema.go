package api

// Persisted layout. These names are written into scene files and must stay
// stable across releases.
const (
	// MaterialsFolder is the conventional child of an object that holds its materials.
	MaterialsFolder = "Looks"
	// Container is the Scope under MaterialsFolder that holds every variant.
	Container = "MME"
	// VariantPrefix prefixes variant folder names: Look_1, Look_2, ...
	VariantPrefix = "Look_"

	// AttrIsActive marks the container (original bindings) or a variant as applied.
	AttrIsActive = "isActive"
	// AttrMeshData holds the encoded MeshDataRecord list.
	AttrMeshData = "meshData"
	// AttrDisplayName is the user-facing label of a variant folder.
	AttrDisplayName = "displayName"

	// AttrViewportUI is the global viewport overlay toggle on the default prim.
	AttrViewportUI = "MMEEnableViewportUI"

	// RelMaterialBinding is the mesh -> material relationship.
	RelMaterialBinding = "material:binding"
)

// MeshDataRecord associates a mesh with the material that should be bound to
// it for one variant. Records are stored as base64(JSON) strings.
type MeshDataRecord struct {
	// Mesh is the absolute path of the bound mesh.
	Mesh string `json:"mesh"`
	// Path is the absolute path of the material.
	Path string `json:"path"`
}

// VariantInfo summarises one variant folder for presentation.
type VariantInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	DisplayName string `json:"display_name,omitempty"`
	Active      bool   `json:"active"`
}
