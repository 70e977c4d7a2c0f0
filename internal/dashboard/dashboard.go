// Package dashboard gates the application on the family data being loaded
// and owns the view stack once it is.
package dashboard

import (
	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/navigation"
)

// States.
const (
	AwaitingAuthentication = "AWAITING_AUTHENTICATION"
	Loading                = "LOADING"
	Loaded                 = "LOADED"
	Error                  = "ERROR"
)

// Actions.
const (
	ActionPushView        = "PUSH_VIEW"
	ActionPopView         = "POP_VIEW"
	ActionReplaceView     = "REPLACE_VIEW"
	ActionSetWeekActivity = "SET_WEEK_ACTIVITY"
	ActionSetWeekDinner   = "SET_WEEK_DINNER"
)

// WeekActivity is the payload of SET_WEEK_ACTIVITY.
type WeekActivity struct {
	WeekID   string         `json:"week_id"`
	TodoID   string         `json:"todo_id"`
	Activity model.Activity `json:"activity"`
}

// WeekDinner is the payload of SET_WEEK_DINNER. An empty DinnerID clears
// the weekday.
type WeekDinner struct {
	WeekID   string `json:"week_id"`
	Weekday  int    `json:"weekday"`
	DinnerID string `json:"dinner_id"`
}

// Collections is the set of collections that delivered their first update.
type Collections uint8

const (
	GroceriesCollection Collections = 1 << iota
	TodosCollection
	CheckListItemsCollection
	DinnersCollection
	WeeksCollection
	FamilyCollection

	AllCollections = GroceriesCollection | TodosCollection | CheckListItemsCollection |
		DinnersCollection | WeeksCollection | FamilyCollection
)

// Data is the latest snapshot of every collection. The maps are shared
// with other readers and must not be modified.
type Data struct {
	Groceries      map[string]model.Grocery       `json:"groceries"`
	Todos          map[string]model.Todo          `json:"todos"`
	CheckListItems map[string]model.CheckListItem `json:"checklist_items"`
	Dinners        map[string]model.Dinner        `json:"dinners"`
	Weeks          map[string]model.Week          `json:"weeks"`
	Family         model.Family                   `json:"family"`
}

type State struct {
	Name     string           `json:"name"`
	User     model.User       `json:"user"`
	Received Collections      `json:"received"`
	Data     Data             `json:"data"`
	Stack    navigation.Stack `json:"stack,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (s State) Kind() string { return s.Name }

func Initial() State {
	return State{Name: AwaitingAuthentication}
}

func New(run fsm.Runner) *fsm.Machine[State] {
	return fsm.NewMachine("dashboard", Initial(), Table, run)
}

func load(s State, ev event.Event) (State, fsm.Command) {
	u, ok := ev.Payload.(model.User)
	if !ok || u.FamilyID == "" {
		return s, nil
	}
	return State{Name: Loading, User: u}, command.LoadFamily{FamilyID: u.FamilyID, UserID: u.ID}
}

func reset(State, event.Event) (State, fsm.Command) {
	return Initial(), nil
}

// receive records a collection update. The last of the six first updates
// completes loading.
func receive(s State, ev event.Event) (State, fsm.Command) {
	switch p := ev.Payload.(type) {
	case map[string]model.Grocery:
		s.Data.Groceries = p
		s.Received |= GroceriesCollection
	case map[string]model.Todo:
		s.Data.Todos = p
		s.Received |= TodosCollection
	case map[string]model.CheckListItem:
		s.Data.CheckListItems = p
		s.Received |= CheckListItemsCollection
	case map[string]model.Dinner:
		s.Data.Dinners = p
		s.Received |= DinnersCollection
	case map[string]model.Week:
		s.Data.Weeks = p
		s.Received |= WeeksCollection
	case model.Family:
		s.Data.Family = p
		s.Received |= FamilyCollection
	default:
		return s, nil
	}
	if s.Name == Loading && s.Received == AllCollections {
		s.Name = Loaded
		s.Stack = navigation.NewStack()
	}
	return s, nil
}

func updates() map[string]fsm.Handler[State] {
	return map[string]fsm.Handler[State]{
		event.GroceriesUpdate:      receive,
		event.TodosUpdate:          receive,
		event.CheckListItemsUpdate: receive,
		event.DinnersUpdate:        receive,
		event.WeeksUpdate:          receive,
		event.FamilyUpdate:         receive,
	}
}

func withHandlers(base map[string]fsm.Handler[State], extra map[string]fsm.Handler[State]) map[string]fsm.Handler[State] {
	for k, h := range extra {
		base[k] = h
	}
	return base
}

var Table = fsm.Table[State]{
	AwaitingAuthentication: {
		event.AuthenticatedWithFamily: load,
	},
	Loading: withHandlers(updates(), map[string]fsm.Handler[State]{
		event.FetchError: func(s State, ev event.Event) (State, fsm.Command) {
			msg := "failed to load family data"
			if f, ok := ev.Payload.(event.FetchFailure); ok {
				msg = f.Message
			}
			return State{Name: Error, User: s.User, Error: msg}, nil
		},
		event.Unauthenticated: reset,
		event.Authenticated:   reset,
	}),
	Loaded: withHandlers(updates(), map[string]fsm.Handler[State]{
		ActionPushView: func(s State, ev event.Event) (State, fsm.Command) {
			if v, ok := ev.Payload.(navigation.View); ok {
				s.Stack = s.Stack.Push(v)
			}
			return s, nil
		},
		ActionPopView: func(s State, _ event.Event) (State, fsm.Command) {
			s.Stack = s.Stack.Pop()
			return s, nil
		},
		ActionReplaceView: func(s State, ev event.Event) (State, fsm.Command) {
			if v, ok := ev.Payload.(navigation.View); ok {
				s.Stack = s.Stack.Replace(v)
			}
			return s, nil
		},
		ActionSetWeekActivity: func(s State, ev event.Event) (State, fsm.Command) {
			p, ok := ev.Payload.(WeekActivity)
			if !ok || p.WeekID == "" || p.TodoID == "" {
				return s, nil
			}
			return s, command.SetWeekActivity{WeekID: p.WeekID, TodoID: p.TodoID, Activity: p.Activity}
		},
		ActionSetWeekDinner: func(s State, ev event.Event) (State, fsm.Command) {
			p, ok := ev.Payload.(WeekDinner)
			if !ok || p.WeekID == "" || p.Weekday < 0 || p.Weekday > 6 {
				return s, nil
			}
			return s, command.SetWeekDinner{WeekID: p.WeekID, Weekday: p.Weekday, DinnerID: p.DinnerID}
		},
		// Switching family reloads everything.
		event.AuthenticatedWithFamily: func(s State, ev event.Event) (State, fsm.Command) {
			u, ok := ev.Payload.(model.User)
			if !ok || u.FamilyID == s.User.FamilyID {
				if ok {
					s.User = u
				}
				return s, nil
			}
			return load(s, ev)
		},
		event.Unauthenticated: reset,
		event.Authenticated:   reset,
	}),
	Error: {
		event.AuthenticatedWithFamily: load,
		event.Unauthenticated:         reset,
	},
}
