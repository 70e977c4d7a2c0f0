// Package imagecapture takes a picture for the editor below it. The camera
// itself is driven by commands; its answers arrive as capture events.
package imagecapture

import (
	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
)

const (
	Idle      = "IDLE"
	Starting  = "STARTING"
	Ready     = "READY"
	Capturing = "CAPTURING"
	Captured  = "CAPTURED"
	Error     = "ERROR"
)

const (
	ActionStart   = "START"
	ActionCapture = "CAPTURE"
	ActionRetake  = "RETAKE"
	ActionConfirm = "CONFIRM"
	ActionCancel  = "CANCEL"
)

type State struct {
	Name    string `json:"name"`
	Src     string `json:"src,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s State) Kind() string { return s.Name }

func Initial() State {
	return State{Name: Idle}
}

func New(run fsm.Runner) *fsm.Machine[State] {
	return fsm.NewMachine("imagecapture", Initial(), Table, run)
}

func start(State, event.Event) (State, fsm.Command) {
	return State{Name: Starting}, command.StartCamera{}
}

func cancel(State, event.Event) (State, fsm.Command) {
	return State{Name: Idle}, command.Exit{}
}

func failed(_ State, ev event.Event) (State, fsm.Command) {
	f, _ := ev.Payload.(event.Failure)
	return State{Name: Error, Message: f.Message}, nil
}

var Table = fsm.Table[State]{
	Idle: {
		ActionStart:  start,
		ActionCancel: cancel,
	},
	Starting: {
		event.CameraStarted: func(State, event.Event) (State, fsm.Command) {
			return State{Name: Ready}, nil
		},
		event.CameraError: failed,
		ActionCancel:      cancel,
	},
	Ready: {
		ActionCapture: func(State, event.Event) (State, fsm.Command) {
			return State{Name: Capturing}, command.Capture{}
		},
		event.CameraError: failed,
		ActionCancel:      cancel,
	},
	Capturing: {
		event.Captured: func(s State, ev event.Event) (State, fsm.Command) {
			img, ok := ev.Payload.(event.Image)
			if !ok || img.Src == "" {
				return s, nil
			}
			return State{Name: Captured, Src: img.Src}, nil
		},
		event.CameraError: failed,
		ActionCancel:      cancel,
	},
	Captured: {
		ActionRetake: func(State, event.Event) (State, fsm.Command) {
			return State{Name: Ready}, nil
		},
		ActionConfirm: func(s State, _ event.Event) (State, fsm.Command) {
			return s, fsm.Batch{command.UseImage{Src: s.Src}, command.Exit{}}
		},
		ActionCancel: cancel,
	},
	Error: {
		ActionStart:  start,
		ActionCancel: cancel,
	},
}
