package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentic-research/mme/api"
	"github.com/agentic-research/mme/internal/primtext"
	"github.com/agentic-research/mme/internal/scene"
	"github.com/agentic-research/mme/internal/session"
	"go.uber.org/zap"
)

func isSQLite(path string) bool {
	switch filepath.Ext(path) {
	case ".db", ".sqlite":
		return true
	}
	return false
}

// loadStage opens a stage file by extension.
func loadStage(path string) (*scene.Stage, error) {
	if isSQLite(path) {
		return scene.OpenSQLite(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage: %w", err)
	}
	s, err := primtext.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse stage %s: %w", path, err)
	}
	return s, nil
}

// saveStage writes a stage file by extension.
func saveStage(s *scene.Stage, path string) error {
	if isSQLite(path) {
		return scene.SaveSQLite(s, path)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(primtext.Write(s)), 0o644); err != nil {
		return fmt.Errorf("write stage: %w", err)
	}
	return os.Rename(tmp, path)
}

// withSession loads the configured stage, attaches a session rendering to
// out, runs fn and saves the stage when save is set.
func withSession(out io.Writer, save bool, fn func(*session.Session) error) error {
	stage, err := loadStage(cfg.Stage)
	if err != nil {
		return err
	}
	sess := session.Attach(stage, out, log)
	defer sess.Detach()

	if err := fn(sess); err != nil {
		return err
	}
	if !save {
		return nil
	}
	if err := saveStage(stage, cfg.Stage); err != nil {
		return err
	}
	log.Debug("stage saved", zap.String("stage", cfg.Stage))
	return nil
}

// demoStage is a chair with two materials and two meshes bound to one of
// them, under the configured default prim.
func demoStage(defaultPrim string, viewportUI bool) (*scene.Stage, error) {
	s := scene.NewStage()
	s.SetDefaultPrim(defaultPrim)
	root := scene.Root.AppendChild(defaultPrim)
	chair := root.AppendChild("Chair")
	looks := chair.AppendChild(api.MaterialsFolder)
	wood := looks.AppendChild("Wood")
	metal := looks.AppendChild("Metal")

	for _, d := range []struct {
		path scene.Path
		typ  string
	}{
		{root, "Xform"},
		{chair, "Xform"},
		{looks, "Scope"},
		{wood, "Material"},
		{wood.AppendChild("PBR"), "Shader"},
		{metal, "Material"},
		{metal.AppendChild("PBR"), "Shader"},
		{chair.AppendChild("Seat"), "Mesh"},
		{chair.AppendChild("Legs"), "Mesh"},
	} {
		if _, err := s.Define(d.path, d.typ); err != nil {
			return nil, err
		}
	}
	for _, m := range []scene.Path{wood, metal} {
		shader := m.AppendChild("PBR")
		if _, err := s.CreateAttribute(shader, "outputs:out", scene.TypeToken, false, scene.Varying); err != nil {
			return nil, err
		}
		if _, err := s.CreateAttribute(m, "outputs:surface", scene.TypeToken, false, scene.Varying); err != nil {
			return nil, err
		}
		if err := s.SetConnections(m, "outputs:surface", []scene.Path{shader.AppendProperty("outputs:out")}); err != nil {
			return nil, err
		}
	}
	for _, mesh := range []string{"Seat", "Legs"} {
		if err := s.SetRelationship(chair.AppendChild(mesh), api.RelMaterialBinding, []scene.Path{wood}); err != nil {
			return nil, err
		}
	}
	if _, err := s.CreateAttribute(root, api.AttrViewportUI, scene.TypeBool, true, scene.Varying); err != nil {
		return nil, err
	}
	if err := s.SetAttribute(root, api.AttrViewportUI, viewportUI); err != nil {
		return nil, err
	}
	return s, nil
}
