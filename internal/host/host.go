// Package host stands in for the authoring application's command and undo
// subsystem: named commands with keyword arguments, grouped undo steps, a
// reverse-chronological command history and "command executed"
// notifications on an event bus.
package host

import (
	"errors"
	"fmt"

	"github.com/agentic-research/mme/internal/event"
	"github.com/agentic-research/mme/internal/scene"
	"go.uber.org/zap"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgs        = errors.New("invalid command arguments")
	ErrNothingToUndo  = errors.New("nothing to undo")
)

// DefaultMaxHistory bounds the retained history.
const DefaultMaxHistory = 1000

// Entry is one executed command as seen in history.
type Entry struct {
	Seq    uint64
	Name   string
	Args   Args
	Level  int    // nesting depth: 0 for commands issued outside any command
	Origin string // correlation id of the issuer, "" for the user
}

// Executor is what command issuers depend on.
type Executor interface {
	Execute(name string, args Args) (any, error)
	Group(fn func() error) error
}

// CommandFunc implements a command against the host's stage.
type CommandFunc func(h *Host, args Args) (any, error)

type undoStep struct {
	label     string
	snapshot  *scene.Stage
	selection []scene.Path
}

// Host owns the live stage and everything that mutates it.
type Host struct {
	stage    *scene.Stage
	bus      *event.Bus
	log      *zap.Logger
	commands map[string]CommandFunc

	history    []Entry // chronological
	maxHistory int
	seq        uint64

	undo       []undoStep
	groupDepth int
	groupStep  *undoStep
	groupUsed  bool

	selection []scene.Path
	depth     int
	origin    string
}

// New returns a host over stage with the builtin commands registered.
func New(stage *scene.Stage, bus *event.Bus, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	if bus == nil {
		bus = event.NewBus(log)
	}
	h := &Host{
		stage:      stage,
		bus:        bus,
		log:        log,
		commands:   make(map[string]CommandFunc),
		maxHistory: DefaultMaxHistory,
	}
	registerBuiltins(h)
	return h
}

// Stage returns the live stage.
func (h *Host) Stage() *scene.Stage { return h.stage }

// Bus returns the notification bus.
func (h *Host) Bus() *event.Bus { return h.bus }

// Register adds or replaces a command.
func (h *Host) Register(name string, fn CommandFunc) { h.commands[name] = fn }

// Execute runs a command. Completed commands are recorded in history and
// announced with event.CommandExecuted. Failed commands are neither recorded
// nor rolled back.
func (h *Host) Execute(name string, args Args) (any, error) {
	fn, ok := h.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if args == nil {
		args = Args{}
	}

	var step *undoStep
	if h.depth == 0 && undoable(name) {
		if h.groupDepth > 0 {
			h.groupUsed = true
		} else {
			step = h.checkpoint(name)
		}
	}

	level := h.depth
	h.depth++
	res, err := fn(h, args)
	h.depth--
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if step != nil {
		h.undo = append(h.undo, *step)
	}

	h.seq++
	entry := Entry{Seq: h.seq, Name: name, Args: args.clone(), Level: level, Origin: h.origin}
	h.history = append(h.history, entry)
	if len(h.history) > h.maxHistory {
		h.history = h.history[len(h.history)-h.maxHistory:]
	}
	h.log.Debug("command executed",
		zap.String("command", name),
		zap.Int("level", level),
		zap.String("origin", h.origin))
	h.bus.Publish(event.Event{Type: event.CommandExecuted, Data: entry})
	return res, nil
}

// Group runs fn so that every command it executes is undone as one step.
// Nested groups fold into the outermost one. A failing fn leaves its partial
// changes in place; they remain undoable.
func (h *Host) Group(fn func() error) error {
	outer := h.groupDepth == 0
	if outer {
		h.groupStep = h.checkpoint("Group")
		h.groupUsed = false
	}
	h.groupDepth++
	err := fn()
	h.groupDepth--
	if outer {
		if h.groupUsed {
			h.undo = append(h.undo, *h.groupStep)
		}
		h.groupStep = nil
	}
	return err
}

// Undo reverts the most recent undo step through the Undo command, so it is
// recorded and announced like any other command.
func (h *Host) Undo() error {
	_, err := h.Execute(CmdUndo, nil)
	return err
}

// CanUndo reports whether an undo step is available.
func (h *Host) CanUndo() bool { return len(h.undo) > 0 }

// History returns executed commands, most recent first.
func (h *Host) History() []Entry {
	out := make([]Entry, len(h.history))
	for i, e := range h.history {
		out[len(h.history)-1-i] = e
	}
	return out
}

// Selection returns the currently selected prim paths.
func (h *Host) Selection() []scene.Path {
	return append([]scene.Path(nil), h.selection...)
}

// Tagged returns an Executor that stamps every command it issues (including
// those run inside its groups) with origin.
func (h *Host) Tagged(origin string) Executor {
	return &tagged{h: h, origin: origin}
}

func (h *Host) checkpoint(label string) *undoStep {
	return &undoStep{label: label, snapshot: h.stage.Flatten(), selection: h.Selection()}
}

func undoable(name string) bool {
	return name != CmdUndo && name != CmdDiagnostic
}

type tagged struct {
	h      *Host
	origin string
}

func (t *tagged) Execute(name string, args Args) (any, error) {
	prev := t.h.origin
	t.h.origin = t.origin
	defer func() { t.h.origin = prev }()
	return t.h.Execute(name, args)
}

func (t *tagged) Group(fn func() error) error {
	prev := t.h.origin
	t.h.origin = t.origin
	defer func() { t.h.origin = prev }()
	return t.h.Group(fn)
}

var _ Executor = (*Host)(nil)
