// Package fsm evaluates feature state machines. States are plain tagged
// values, handlers are pure functions looked up by (state kind, event type),
// and side effects leave a transition only as Command data.
package fsm

import (
	"sync"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/event"
)

// State is implemented by every feature state.
type State interface {
	Kind() string
}

// Command describes a side effect requested by a transition.
type Command interface {
	Command() string
}

// Batch groups commands produced by a single transition. They run in order.
type Batch []Command

func (Batch) Command() string { return "BATCH" }

// Flatten expands nested batches and drops nil entries.
func Flatten(cmd Command) []Command {
	if cmd == nil {
		return nil
	}
	b, ok := cmd.(Batch)
	if !ok {
		return []Command{cmd}
	}
	var out []Command
	for _, c := range b {
		out = append(out, Flatten(c)...)
	}
	return out
}

// Handler computes the next state for one (state kind, event type) pair.
type Handler[S State] func(S, event.Event) (S, Command)

// Table maps state kind to event type to handler.
type Table[S State] map[string]map[string]Handler[S]

// Transition looks up the handler for the current state and event. Events
// with no handler leave the state unchanged and produce no command.
func Transition[S State](state S, ev event.Event, table Table[S]) (S, Command) {
	handlers, ok := table[state.Kind()]
	if !ok {
		return state, nil
	}
	h, ok := handlers[ev.Type]
	if !ok {
		return state, nil
	}
	return h(state, ev)
}

// Runner executes commands outside the pure core.
type Runner func(Command)

// Machine holds the current state of one feature instance.
type Machine[S State] struct {
	mu        sync.Mutex
	name      string
	state     S
	table     Table[S]
	run       Runner
	listeners []func(S)
}

// NewMachine creates a machine starting in initial. run may be nil when the
// feature never produces commands.
func NewMachine[S State](name string, initial S, table Table[S], run Runner) *Machine[S] {
	return &Machine[S]{
		name:  name,
		state: initial,
		table: table,
		run:   run,
	}
}

// Name identifies the machine in logs.
func (m *Machine[S]) Name() string {
	return m.name
}

// State returns the current state.
func (m *Machine[S]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange registers fn to be called after every transition.
func (m *Machine[S]) OnChange(fn func(S)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Dispatch applies ev. The produced command, if any, is handed to the runner
// once, after the new state is visible to readers.
func (m *Machine[S]) Dispatch(ev event.Event) S {
	m.mu.Lock()
	next, cmd := Transition(m.state, ev, m.table)
	m.state = next
	listeners := append([]func(S){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	if cmd != nil && m.run != nil {
		for _, c := range Flatten(cmd) {
			m.run(c)
		}
	}
	return next
}

// Attach subscribes the machine to b and returns the release function.
func (m *Machine[S]) Attach(b *bus.Bus) func() {
	return b.Subscribe(func(ev event.Event) {
		m.Dispatch(ev)
	})
}
