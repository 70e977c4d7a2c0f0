package fsm

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/event"
)

type lightState struct {
	kind  string
	flips int
}

func (s lightState) Kind() string { return s.kind }

type notify struct{ text string }

func (notify) Command() string { return "NOTIFY" }

var lightTable = Table[lightState]{
	"OFF": {
		"TOGGLE": func(s lightState, _ event.Event) (lightState, Command) {
			return lightState{kind: "ON", flips: s.flips + 1}, notify{text: "on"}
		},
	},
	"ON": {
		"TOGGLE": func(s lightState, _ event.Event) (lightState, Command) {
			return lightState{kind: "OFF", flips: s.flips + 1}, nil
		},
		"BLINK": func(s lightState, _ event.Event) (lightState, Command) {
			return s, Batch{notify{text: "off"}, Batch{notify{text: "on"}}, nil}
		},
	},
}

func TestTransitionUnknownPairIsIgnored(t *testing.T) {
	s := lightState{kind: "OFF"}

	next, cmd := Transition(s, event.New("BLINK", nil), lightTable)
	assert.Equal(t, s, next)
	assert.Nil(t, cmd)

	next, cmd = Transition(lightState{kind: "BROKEN"}, event.New("TOGGLE", nil), lightTable)
	assert.Equal(t, "BROKEN", next.Kind())
	assert.Nil(t, cmd)
}

func TestTransitionReturnsCommand(t *testing.T) {
	next, cmd := Transition(lightState{kind: "OFF"}, event.New("TOGGLE", nil), lightTable)
	assert.Equal(t, "ON", next.Kind())
	assert.Equal(t, notify{text: "on"}, cmd)
}

func TestFlatten(t *testing.T) {
	assert.Nil(t, Flatten(nil))
	assert.Equal(t, []Command{notify{"a"}}, Flatten(notify{"a"}))
	assert.Equal(t,
		[]Command{notify{"a"}, notify{"b"}, notify{"c"}},
		Flatten(Batch{notify{"a"}, Batch{notify{"b"}, nil, Batch{notify{"c"}}}}),
	)
}

func TestMachineRunsCommandOncePerTransition(t *testing.T) {
	var ran []Command
	m := NewMachine("light", lightState{kind: "OFF"}, lightTable, func(c Command) { ran = append(ran, c) })

	m.Dispatch(event.New("TOGGLE", nil))
	require.Len(t, ran, 1)

	// Unrelated events do not re-fire the command of the state they land in.
	m.Dispatch(event.New("UNRELATED", nil))
	m.Dispatch(event.New("UNRELATED", nil))
	assert.Len(t, ran, 1)
	assert.Equal(t, "ON", m.State().Kind())

	m.Dispatch(event.New("BLINK", nil))
	assert.Equal(t, []Command{notify{"on"}, notify{"off"}, notify{"on"}}, ran)
}

func TestMachineStateVisibleToRunner(t *testing.T) {
	var m *Machine[lightState]
	var seen string
	m = NewMachine("light", lightState{kind: "OFF"}, lightTable, func(Command) {
		seen = m.State().Kind()
	})

	m.Dispatch(event.New("TOGGLE", nil))
	assert.Equal(t, "ON", seen)
}

func TestMachineOnChange(t *testing.T) {
	m := NewMachine("light", lightState{kind: "OFF"}, lightTable, nil)

	var kinds []string
	m.OnChange(func(s lightState) { kinds = append(kinds, s.Kind()) })

	m.Dispatch(event.New("TOGGLE", nil))
	m.Dispatch(event.New("TOGGLE", nil))
	assert.Equal(t, []string{"ON", "OFF"}, kinds)
	assert.Equal(t, 2, m.State().flips)
}

func TestMachineAttach(t *testing.T) {
	b := bus.New(slog.Default())
	m := NewMachine("light", lightState{kind: "OFF"}, lightTable, nil)

	release := m.Attach(b)
	b.Publish(event.New("TOGGLE", nil))
	assert.Equal(t, "ON", m.State().Kind())

	release()
	b.Publish(event.New("TOGGLE", nil))
	assert.Equal(t, "ON", m.State().Kind(), "released machine must not see events")
	assert.Equal(t, 0, b.SubscriberCount())
}
