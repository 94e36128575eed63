package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestBus_PublishInOrder(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t))
	var got []string
	b.Subscribe(CommandExecuted, func(Event) { got = append(got, "first") })
	b.Subscribe(CommandExecuted, func(Event) { got = append(got, "second") })
	b.Subscribe(StageReplaced, func(Event) { got = append(got, "other") })

	b.Publish(Event{Type: CommandExecuted})
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	sub := b.Subscribe(CommandExecuted, func(Event) { calls++ })
	b.Publish(Event{Type: CommandExecuted})
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	b.Publish(Event{Type: CommandExecuted})
	assert.Equal(t, 1, calls)
}

func TestBus_PanicIsContained(t *testing.T) {
	b := NewBus(nil)
	reached := false
	b.Subscribe(CommandExecuted, func(Event) { panic("boom") })
	b.Subscribe(CommandExecuted, func(Event) { reached = true })

	assert.NotPanics(t, func() { b.Publish(Event{Type: CommandExecuted, Data: 42}) })
	assert.True(t, reached)
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "command_executed", CommandExecuted.String())
	assert.Equal(t, "event(9)", Type(9).String())
}
