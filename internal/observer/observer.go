// Package observer turns host command notifications into variant
// reconciliation and presentation context switches.
package observer

import (
	"github.com/agentic-research/mme/internal/event"
	"github.com/agentic-research/mme/internal/host"
	"github.com/agentic-research/mme/internal/present"
	"github.com/agentic-research/mme/internal/scene"
	"github.com/agentic-research/mme/internal/variant"
	"go.uber.org/zap"
)

// watched are the commands that can change what the shell shows.
var watched = map[string]bool{
	host.CmdSelectPrims:   true,
	host.CmdCreatePrim:    true,
	host.CmdDeletePrims:   true,
	host.CmdMovePrim:      true,
	host.CmdTransformPrim: true,
	host.CmdUndo:          true,
	host.CmdBindMaterial:  true,
}

// Source is the part of the host the observer reads.
type Source interface {
	Stage() *scene.Stage
	History() []host.Entry
	Selection() []scene.Path
}

// Reconciler absorbs user material bindings.
type Reconciler interface {
	Origin() string
	Reconcile(mesh, material scene.Path) error
}

// Observer reacts to CommandExecuted events.
type Observer struct {
	src    Source
	engine Reconciler
	shell  present.Presenter
	log    *zap.Logger

	bus *event.Bus
	sub event.Subscription

	lastSelected scene.Path
	current      scene.Path
}

// New returns a detached observer.
func New(src Source, engine Reconciler, shell present.Presenter, log *zap.Logger) *Observer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Observer{src: src, engine: engine, shell: shell, log: log}
}

// Attach subscribes to bus.
func (o *Observer) Attach(bus *event.Bus) {
	o.Detach()
	o.bus = bus
	o.sub = bus.Subscribe(event.CommandExecuted, o.Handle)
}

// Detach unsubscribes. Calling it twice is harmless.
func (o *Observer) Detach() {
	if o.bus == nil {
		return
	}
	o.bus.Unsubscribe(o.sub)
	o.bus = nil
}

// Current is the object of interest, "" when none.
func (o *Observer) Current() scene.Path { return o.current }

// Handle processes one notification.
func (o *Observer) Handle(e event.Event) {
	entry, ok := o.resolveEntry(e)
	if !ok || !watched[entry.Name] {
		return
	}
	if entry.Origin != "" && entry.Origin == o.engine.Origin() {
		return
	}

	if entry.Name == host.CmdBindMaterial {
		o.reconcile(entry)
		return
	}
	o.refresh(entry.Name == host.CmdUndo)
}

// resolveEntry picks the command a notification is about. A Diagnostic
// announces nothing by itself; the command before it is used instead.
func (o *Observer) resolveEntry(e event.Event) (host.Entry, bool) {
	entry, ok := e.Data.(host.Entry)
	if !ok {
		hist := o.src.History()
		if len(hist) == 0 {
			return host.Entry{}, false
		}
		entry = hist[0]
	}
	if entry.Name != host.CmdDiagnostic {
		return entry, true
	}
	for _, prev := range o.src.History() {
		if prev.Seq < entry.Seq && prev.Name != host.CmdDiagnostic {
			return prev, true
		}
	}
	return host.Entry{}, false
}

func (o *Observer) reconcile(entry host.Entry) {
	meshes, err := entry.Args.Paths("prim_path")
	if err != nil {
		o.log.Warn("bind without prim_path", zap.Error(err))
		return
	}
	mat, err := entry.Args.Path("material_path")
	if err != nil {
		o.log.Warn("bind without material_path", zap.Error(err))
		return
	}
	for _, mesh := range meshes {
		if err := o.engine.Reconcile(mesh, mat); err != nil {
			o.log.Warn("reconcile failed",
				zap.String("mesh", mesh.String()),
				zap.String("path", mat.String()),
				zap.Error(err))
		}
	}
}

// refresh re-derives the object of interest from the selection and switches
// the shell when it changed. force re-renders regardless.
func (o *Observer) refresh(force bool) {
	stage := o.src.Stage()
	sel := o.src.Selection()
	if force && o.current != "" && !stage.Has(o.current) {
		o.current = ""
	}

	if len(sel) == 0 {
		o.lastSelected = ""
		if o.current != "" || force {
			o.current = ""
			o.shell.ShowDefault()
		}
		return
	}

	path := sel[0]
	if path == o.lastSelected && !force {
		return
	}
	o.lastSelected = path

	if path.IsRoot() || path == stage.DefaultPrimPath() {
		if o.current != "" || force {
			o.current = ""
			o.shell.ShowDefault()
		}
		return
	}

	object, err := variant.Owner(stage, path)
	if err != nil {
		o.log.Warn("unexpected selection", zap.String("path", path.String()), zap.Error(err))
		return
	}
	if object == o.current && !force {
		return
	}
	o.current = object
	o.shell.ShowObject(object)
}
