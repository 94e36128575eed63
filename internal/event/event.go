// Package event is a synchronous, typed notification bus. Handlers run on the
// publisher's goroutine, one after another, in subscription order.
package event

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Type identifies what happened.
type Type int

const (
	// CommandExecuted fires after a host command has completed.
	CommandExecuted Type = iota
	// StageReplaced fires when the whole stage was swapped (undo, reload).
	StageReplaced
)

func (t Type) String() string {
	switch t {
	case CommandExecuted:
		return "command_executed"
	case StageReplaced:
		return "stage_replaced"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event carries a type and its payload.
type Event struct {
	Type Type
	Data any
}

// Handler receives events.
type Handler func(Event)

// Subscription is the token returned by Subscribe.
type Subscription struct {
	typ Type
	id  uint64
}

type subscriber struct {
	id uint64
	fn Handler
}

// Bus routes events to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Type][]subscriber
	nextID uint64
	log    *zap.Logger
}

// NewBus returns an empty bus. A nil logger discards output.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{subs: make(map[Type][]subscriber), log: log}
}

// Subscribe registers fn for events of type t.
func (b *Bus) Subscribe(t Type, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[t] = append(b.subs[t], subscriber{id: b.nextID, fn: fn})
	return Subscription{typ: t, id: b.nextID}
}

// Unsubscribe removes a subscription. Unknown tokens are ignored.
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[s.typ]
	for i, sub := range list {
		if sub.id == s.id {
			b.subs[s.typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every subscriber of its type. A panicking handler is
// logged and does not stop delivery to the others.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Type]))
	for _, sub := range b.subs[e.Type] {
		handlers = append(handlers, sub.fn)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, e)
	}
}

func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in event handler",
				zap.Stringer("event", e.Type),
				zap.Any("panic", r))
		}
	}()
	h(e)
}
