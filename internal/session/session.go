// Package session ties one stage to its host, variant engine, change
// observer and presentation shell for the lifetime of an attachment.
package session

import (
	"errors"
	"io"

	"github.com/agentic-research/mme/internal/event"
	"github.com/agentic-research/mme/internal/host"
	"github.com/agentic-research/mme/internal/observer"
	"github.com/agentic-research/mme/internal/present"
	"github.com/agentic-research/mme/internal/scene"
	"github.com/agentic-research/mme/internal/variant"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrDetached = errors.New("session is detached")

// Session is the live context of the variant tooling on one stage.
type Session struct {
	ID       string
	Stage    *scene.Stage
	Bus      *event.Bus
	Host     *host.Host
	Engine   *variant.Engine
	Observer *observer.Observer
	Shell    *present.Shell

	log      *zap.Logger
	attached bool
}

// Attach builds a session over stage and starts observing host commands.
// The shell renders to out.
func Attach(stage *scene.Stage, out io.Writer, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	log = log.With(zap.String("session", id))

	bus := event.NewBus(log)
	h := host.New(stage, bus, log)
	engine := variant.NewEngine(stage, h.Tagged(id), id, log.Named("variant"))
	shell := present.NewShell(stage, engine, h, out, log.Named("present"))
	obs := observer.New(h, engine, shell, log.Named("observer"))
	obs.Attach(bus)

	log.Debug("session attached", zap.String("default_prim", stage.DefaultPrim()))
	return &Session{
		ID:       id,
		Stage:    stage,
		Bus:      bus,
		Host:     h,
		Engine:   engine,
		Observer: obs,
		Shell:    shell,
		log:      log,
		attached: true,
	}
}

// Attached reports whether the session still observes the host.
func (s *Session) Attached() bool { return s.attached }

// Select issues a user selection, as the host UI would.
func (s *Session) Select(paths ...scene.Path) error {
	if !s.attached {
		return ErrDetached
	}
	if paths == nil {
		paths = []scene.Path{}
	}
	_, err := s.Host.Execute(host.CmdSelectPrims, host.Args{"new_selected_paths": paths})
	return err
}

// Detach stops observing. The stage is left as it is.
func (s *Session) Detach() {
	if !s.attached {
		return
	}
	s.Observer.Detach()
	s.attached = false
	s.log.Debug("session detached")
}
