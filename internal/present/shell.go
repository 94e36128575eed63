// Package present is the presentation shell: it renders the variant state of
// the object of interest and maps UI actions onto variant engine operations.
package present

import (
	"fmt"
	"io"

	"github.com/agentic-research/mme/api"
	"github.com/agentic-research/mme/internal/host"
	"github.com/agentic-research/mme/internal/scene"
	"github.com/agentic-research/mme/internal/variant"
	"go.uber.org/zap"
)

// Presenter switches the displayed context.
type Presenter interface {
	ShowObject(object scene.Path)
	ShowDefault()
}

// Shell is a text Presenter. UI actions call the engine and re-render.
type Shell struct {
	stage  *scene.Stage
	engine *variant.Engine
	user   host.Executor
	out    io.Writer
	log    *zap.Logger

	object scene.Path
}

// NewShell renders to out. user executes commands on the user's behalf
// (selection), so they are observed like any other user edit.
func NewShell(stage *scene.Stage, engine *variant.Engine, user host.Executor, out io.Writer, log *zap.Logger) *Shell {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shell{stage: stage, engine: engine, user: user, out: out, log: log}
}

// Object is the object currently shown, "" for the default view.
func (s *Shell) Object() scene.Path { return s.object }

// ShowObject implements Presenter.
func (s *Shell) ShowObject(object scene.Path) {
	s.object = object
	s.Render()
}

// ShowDefault implements Presenter.
func (s *Shell) ShowDefault() {
	s.object = ""
	s.Render()
}

// Render writes the current view.
func (s *Shell) Render() {
	if s.object == "" {
		fmt.Fprintln(s.out, "Select an object with a Looks folder.")
		fmt.Fprintf(s.out, "Viewport UI: %s\n", onOff(s.engine.ViewportUIEnabled()))
		return
	}

	fmt.Fprintf(s.out, "Object: %s\n", s.object)
	if !s.stage.Has(variant.LooksPath(s.object)) {
		fmt.Fprintf(s.out, "  no %s folder\n", api.MaterialsFolder)
		return
	}

	fmt.Fprintln(s.out, "Active materials:")
	mats := s.engine.ActiveMaterials(s.object)
	if len(mats) == 0 {
		fmt.Fprintln(s.out, "  (none)")
	}
	for _, m := range mats {
		fmt.Fprintf(s.out, "  %s\n", m)
	}

	fmt.Fprintln(s.out, "Variants:")
	if !s.stage.Has(variant.ContainerPath(s.object)) {
		fmt.Fprintln(s.out, "  (none)")
		return
	}
	fmt.Fprintf(s.out, "  %s Original\n", mark(s.engine.OriginalActive(s.object)))
	for _, v := range s.engine.ListVariants(s.object) {
		label := v.Name
		if v.DisplayName != "" && v.DisplayName != v.Name {
			label = fmt.Sprintf("%s (%s)", v.Name, v.DisplayName)
		}
		fmt.Fprintf(s.out, "  %s %s\n", mark(v.Active), label)
	}
}

// AddVariant is the "Add" action.
func (s *Shell) AddVariant() (string, error) {
	if s.object == "" {
		return "", errNoObject
	}
	name, err := s.engine.AddVariant(s.object)
	if err != nil {
		return "", err
	}
	s.Render()
	return name, nil
}

// EnableVariant is the "Enable" action; "" restores the original.
func (s *Shell) EnableVariant(name string) error {
	if s.object == "" {
		return errNoObject
	}
	if err := s.engine.EnableVariant(s.object, name); err != nil {
		return err
	}
	s.Render()
	return nil
}

// DeleteVariant is the "Delete" action.
func (s *Shell) DeleteVariant(name string) error {
	if s.object == "" {
		return errNoObject
	}
	if err := s.engine.DeleteVariant(variant.VariantPath(s.object, name)); err != nil {
		return err
	}
	s.Render()
	return nil
}

// RenameVariant changes a variant's label.
func (s *Shell) RenameVariant(name, display string) error {
	if s.object == "" {
		return errNoObject
	}
	if err := s.engine.RenameVariant(s.object, name, display); err != nil {
		return err
	}
	s.Render()
	return nil
}

// SelectMaterial selects the material bound to mesh.
func (s *Shell) SelectMaterial(mesh scene.Path) error {
	mat, ok := s.engine.MaterialOf(mesh)
	if !ok {
		return fmt.Errorf("%w: %s has no material", scene.ErrNotFound, mesh)
	}
	_, err := s.user.Execute(host.CmdSelectPrims, host.Args{"new_selected_paths": []scene.Path{mat}})
	return err
}

// SetViewportUI flips the global overlay toggle.
func (s *Shell) SetViewportUI(on bool) error {
	if err := s.engine.SetViewportUI(on); err != nil {
		return err
	}
	s.log.Debug("viewport ui", zap.Bool("enabled", on))
	return nil
}

var errNoObject = fmt.Errorf("%w: no object selected", scene.ErrNotFound)

func mark(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

var _ Presenter = (*Shell)(nil)
