// Package todoeditor edits a todo. Date, time and checklist are optional
// parts of the draft that can be switched on and off independently.
package todoeditor

import (
	"strings"
	"time"

	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/model"
)

const Editing = "EDITING"

const (
	ActionSetDescription      = "SET_DESCRIPTION"
	ActionToggleDate          = "TOGGLE_DATE"
	ActionSetDate             = "SET_DATE"
	ActionToggleTime          = "TOGGLE_TIME"
	ActionSetTime             = "SET_TIME"
	ActionToggleCheckList     = "TOGGLE_CHECKLIST"
	ActionSetNewCheckListItem = "SET_NEW_CHECKLIST_ITEM"
	ActionAddCheckListItem    = "ADD_CHECKLIST_ITEM"
	ActionRemoveCheckListItem = "REMOVE_CHECKLIST_ITEM"
	ActionSetGrocery          = "SET_GROCERY"
	ActionAddTodo             = "ADD_TODO"
	ActionArchiveTodo         = "ARCHIVE_TODO"
)

// Toggle is the state of an optional part.
type Toggle string

const (
	Active   Toggle = "ACTIVE"
	Inactive Toggle = "INACTIVE"
)

type Validation string

const (
	Valid   Validation = "VALID"
	Invalid Validation = "INVALID"
)

// DefaultTime seeds the time of day when it is switched on.
var DefaultTime = model.Clock{Hour: 10}

type DateState struct {
	Status Toggle     `json:"status"`
	Value  model.Date `json:"value"`
}

type TimeState struct {
	Status Toggle      `json:"status"`
	Value  model.Clock `json:"value"`
}

type CheckListState struct {
	Status Toggle   `json:"status"`
	Items  []string `json:"items"`
}

type State struct {
	Name             string         `json:"name"`
	Todo             model.Todo     `json:"todo"`
	IsNew            bool           `json:"is_new"`
	Date             DateState      `json:"date"`
	Time             TimeState      `json:"time"`
	CheckList        CheckListState `json:"checklist"`
	NewCheckListItem string         `json:"new_checklist_item"`
	Validation       Validation     `json:"validation"`
}

func (s State) Kind() string { return s.Name }

// Initial starts editing t. The optional parts start active when t
// already has them.
func Initial(t model.Todo, isNew bool) State {
	s := State{
		Name:      Editing,
		Todo:      t,
		IsNew:     isNew,
		Date:      DateState{Status: Inactive},
		Time:      TimeState{Status: Inactive},
		CheckList: CheckListState{Status: Inactive},
	}
	if t.Date != nil {
		s.Date = DateState{Status: Active, Value: *t.Date}
	}
	if t.Time != nil {
		s.Time = TimeState{Status: Active, Value: *t.Time}
	}
	if t.CheckList {
		s.CheckList = CheckListState{Status: Active}
	}
	s.Todo.Date, s.Todo.Time = nil, nil
	return validate(s)
}

// New returns an editor machine. now seeds the date when it is switched on.
func New(t model.Todo, isNew bool, now func() time.Time, run fsm.Runner) *fsm.Machine[State] {
	return fsm.NewMachine("todoeditor", Initial(t, isNew), NewTable(now), run)
}

func validate(s State) State {
	if strings.TrimSpace(s.Todo.Description) == "" {
		s.Validation = Invalid
	} else {
		s.Validation = Valid
	}
	return s
}

func edit(fn func(State, event.Event) State) fsm.Handler[State] {
	return func(s State, ev event.Event) (State, fsm.Command) {
		return validate(fn(s, ev)), nil
	}
}

// result is the todo as it will be stored.
func (s State) result() model.Todo {
	t := s.Todo
	t.Date, t.Time = nil, nil
	if s.Date.Status == Active {
		d := s.Date.Value
		t.Date = &d
	}
	if s.Time.Status == Active {
		c := s.Time.Value
		t.Time = &c
	}
	t.CheckList = s.CheckList.Status == Active
	return t
}

// NewTable builds the transition table using now as the clock.
func NewTable(now func() time.Time) fsm.Table[State] {
	if now == nil {
		now = time.Now
	}
	return fsm.Table[State]{
		Editing: {
			ActionSetDescription: edit(func(s State, ev event.Event) State {
				s.Todo.Description, _ = ev.Payload.(string)
				return s
			}),
			ActionToggleDate: edit(func(s State, _ event.Event) State {
				if s.Date.Status == Active {
					s.Date = DateState{Status: Inactive}
				} else {
					s.Date = DateState{Status: Active, Value: model.DateOf(now())}
				}
				return s
			}),
			ActionSetDate: edit(func(s State, ev event.Event) State {
				if d, ok := ev.Payload.(model.Date); ok && s.Date.Status == Active {
					s.Date.Value = d
				}
				return s
			}),
			ActionToggleTime: edit(func(s State, _ event.Event) State {
				if s.Time.Status == Active {
					s.Time = TimeState{Status: Inactive}
				} else {
					s.Time = TimeState{Status: Active, Value: DefaultTime}
				}
				return s
			}),
			ActionSetTime: edit(func(s State, ev event.Event) State {
				if c, ok := ev.Payload.(model.Clock); ok && s.Time.Status == Active {
					s.Time.Value = c
				}
				return s
			}),
			ActionToggleCheckList: edit(func(s State, _ event.Event) State {
				if s.CheckList.Status == Active {
					s.CheckList = CheckListState{Status: Inactive}
				} else {
					s.CheckList = CheckListState{Status: Active, Items: []string{}}
				}
				s.NewCheckListItem = ""
				return s
			}),
			ActionSetNewCheckListItem: edit(func(s State, ev event.Event) State {
				s.NewCheckListItem, _ = ev.Payload.(string)
				return s
			}),
			ActionAddCheckListItem: edit(func(s State, _ event.Event) State {
				title := strings.TrimSpace(s.NewCheckListItem)
				if s.CheckList.Status != Active || title == "" {
					return s
				}
				items := make([]string, len(s.CheckList.Items), len(s.CheckList.Items)+1)
				copy(items, s.CheckList.Items)
				s.CheckList.Items = append(items, title)
				s.NewCheckListItem = ""
				return s
			}),
			ActionRemoveCheckListItem: edit(func(s State, ev event.Event) State {
				i, ok := ev.Payload.(int)
				if !ok || i < 0 || i >= len(s.CheckList.Items) {
					return s
				}
				items := make([]string, 0, len(s.CheckList.Items)-1)
				items = append(items, s.CheckList.Items[:i]...)
				s.CheckList.Items = append(items, s.CheckList.Items[i+1:]...)
				return s
			}),
			ActionSetGrocery: edit(func(s State, ev event.Event) State {
				s.Todo.Grocery, _ = ev.Payload.(string)
				return s
			}),
			ActionAddTodo: func(s State, _ event.Event) (State, fsm.Command) {
				if s.Validation != Valid {
					return s, nil
				}
				var titles []string
				if s.CheckList.Status == Active {
					titles = append([]string(nil), s.CheckList.Items...)
				}
				return s, fsm.Batch{command.StoreTodo{Todo: s.result(), CheckList: titles}, command.Exit{}}
			},
			ActionArchiveTodo: func(s State, _ event.Event) (State, fsm.Command) {
				if s.IsNew {
					return s, nil
				}
				return s, fsm.Batch{command.ArchiveTodo{ID: s.Todo.ID}, command.Exit{}}
			},
		},
	}
}
