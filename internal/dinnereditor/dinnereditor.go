// Package dinnereditor edits a dinner recipe. The draft is only persisted
// on SAVE, and only while it is valid.
package dinnereditor

import (
	"strings"

	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/model"
)

const Editing = "EDITING"

// Actions. Text payloads are strings, index payloads are ints.
const (
	ActionSetName           = "SET_NAME"
	ActionSetDescription    = "SET_DESCRIPTION"
	ActionSetNewGrocery     = "SET_NEW_GROCERY"
	ActionAddGrocery        = "ADD_GROCERY"
	ActionRemoveGrocery     = "REMOVE_GROCERY"
	ActionSetNewInstruction = "SET_NEW_INSTRUCTION"
	ActionAddInstruction    = "ADD_INSTRUCTION"
	ActionRemoveInstruction = "REMOVE_INSTRUCTION"
	ActionMoveInstruction   = "MOVE_INSTRUCTION"
	ActionSetNewPreparation = "SET_NEW_PREPARATION"
	ActionAddPreparation    = "ADD_PREPARATION"
	ActionRemovePreparation = "REMOVE_PREPARATION"
	ActionRemoveImage       = "REMOVE_IMAGE"
	ActionSave              = "SAVE"
	ActionDelete            = "DELETE"
)

type Validation string

const (
	Valid   Validation = "VALID"
	Invalid Validation = "INVALID"
)

// Move is the payload of MOVE_INSTRUCTION.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type State struct {
	Name           string       `json:"name"`
	Dinner         model.Dinner `json:"dinner"`
	IsNew          bool         `json:"is_new"`
	NewGrocery     string       `json:"new_grocery"`
	NewInstruction string       `json:"new_instruction"`
	NewPreparation string       `json:"new_preparation"`
	Validation     Validation   `json:"validation"`
}

func (s State) Kind() string { return s.Name }

// Initial starts editing d. isNew marks a dinner that has never been saved
// and therefore cannot be deleted.
func Initial(d model.Dinner, isNew bool) State {
	return validate(State{Name: Editing, Dinner: d.Clone(), IsNew: isNew})
}

func New(d model.Dinner, isNew bool, run fsm.Runner) *fsm.Machine[State] {
	return fsm.NewMachine("dinnereditor", Initial(d, isNew), Table, run)
}

func validate(s State) State {
	d := s.Dinner
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Description) == "" || len(d.Instructions) == 0 {
		s.Validation = Invalid
	} else {
		s.Validation = Valid
	}
	return s
}

// edit wraps a draft update so validation always reflects the new draft.
func edit(fn func(State, event.Event) State) fsm.Handler[State] {
	return func(s State, ev event.Event) (State, fsm.Command) {
		return validate(fn(s, ev)), nil
	}
}

func text(ev event.Event) string {
	v, _ := ev.Payload.(string)
	return v
}

func appended(list []string, v string) []string {
	out := make([]string, len(list), len(list)+1)
	copy(out, list)
	return append(out, v)
}

func removed(list []string, i int) []string {
	if i < 0 || i >= len(list) {
		return list
	}
	out := make([]string, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func moved(list []string, from, to int) []string {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) || from == to {
		return list
	}
	item := list[from]
	out := removed(list, from)
	res := make([]string, 0, len(list))
	res = append(res, out[:to]...)
	res = append(res, item)
	return append(res, out[to:]...)
}

var Table = fsm.Table[State]{
	Editing: {
		ActionSetName: edit(func(s State, ev event.Event) State {
			s.Dinner.Name = text(ev)
			return s
		}),
		ActionSetDescription: edit(func(s State, ev event.Event) State {
			s.Dinner.Description = text(ev)
			return s
		}),
		ActionSetNewGrocery: edit(func(s State, ev event.Event) State {
			s.NewGrocery = text(ev)
			return s
		}),
		ActionAddGrocery: edit(func(s State, _ event.Event) State {
			if v := strings.TrimSpace(s.NewGrocery); v != "" {
				s.Dinner.Groceries = appended(s.Dinner.Groceries, v)
				s.NewGrocery = ""
			}
			return s
		}),
		ActionRemoveGrocery: edit(func(s State, ev event.Event) State {
			if i, ok := ev.Payload.(int); ok {
				s.Dinner.Groceries = removed(s.Dinner.Groceries, i)
			}
			return s
		}),
		ActionSetNewInstruction: edit(func(s State, ev event.Event) State {
			s.NewInstruction = text(ev)
			return s
		}),
		ActionAddInstruction: edit(func(s State, _ event.Event) State {
			if v := strings.TrimSpace(s.NewInstruction); v != "" {
				s.Dinner.Instructions = appended(s.Dinner.Instructions, v)
				s.NewInstruction = ""
			}
			return s
		}),
		ActionRemoveInstruction: edit(func(s State, ev event.Event) State {
			if i, ok := ev.Payload.(int); ok {
				s.Dinner.Instructions = removed(s.Dinner.Instructions, i)
			}
			return s
		}),
		ActionMoveInstruction: edit(func(s State, ev event.Event) State {
			if m, ok := ev.Payload.(Move); ok {
				s.Dinner.Instructions = moved(s.Dinner.Instructions, m.From, m.To)
			}
			return s
		}),
		ActionSetNewPreparation: edit(func(s State, ev event.Event) State {
			s.NewPreparation = text(ev)
			return s
		}),
		ActionAddPreparation: edit(func(s State, _ event.Event) State {
			if v := strings.TrimSpace(s.NewPreparation); v != "" {
				s.Dinner.Preparations = appended(s.Dinner.Preparations, v)
				s.NewPreparation = ""
			}
			return s
		}),
		ActionRemovePreparation: edit(func(s State, ev event.Event) State {
			if i, ok := ev.Payload.(int); ok {
				s.Dinner.Preparations = removed(s.Dinner.Preparations, i)
			}
			return s
		}),
		event.Captured: edit(func(s State, ev event.Event) State {
			if img, ok := ev.Payload.(event.Image); ok && img.Src != "" {
				s.Dinner.Image = img.Src
			}
			return s
		}),
		ActionRemoveImage: edit(func(s State, _ event.Event) State {
			s.Dinner.Image = ""
			return s
		}),
		ActionSave: func(s State, _ event.Event) (State, fsm.Command) {
			if s.Validation != Valid {
				return s, nil
			}
			d := s.Dinner.Clone()
			d.Name = strings.TrimSpace(d.Name)
			d.Description = strings.TrimSpace(d.Description)
			return s, fsm.Batch{command.StoreDinner{Dinner: d}, command.Exit{}}
		},
		ActionDelete: func(s State, _ event.Event) (State, fsm.Command) {
			if s.IsNew {
				return s, nil
			}
			return s, fsm.Batch{command.DeleteDinner{ID: s.Dinner.ID}, command.Exit{}}
		},
	},
}
