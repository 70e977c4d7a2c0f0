// Package shopping drives the grocery shopping list: queueing groceries by
// name and checking them off in the store.
package shopping

import (
	"strings"

	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/selectors"
)

const List = "LIST"

// Actions. ADD_GROCERY carries the id minted in case a new grocery is
// needed; the other grocery actions carry the id of an existing grocery.
const (
	ActionSetInput          = "SET_INPUT"
	ActionAddGrocery        = "ADD_GROCERY"
	ActionIncreaseShopCount = "INCREASE_SHOP_COUNT"
	ActionDecreaseShopCount = "DECREASE_SHOP_COUNT"
	ActionShopGrocery       = "SHOP_GROCERY"
	ActionDeleteGrocery     = "DELETE_GROCERY"
)

type State struct {
	Name      string                   `json:"name"`
	Groceries map[string]model.Grocery `json:"groceries"`
	Input     string                   `json:"input"`
}

func (s State) Kind() string { return s.Name }

// ShoppingList is the queued groceries in pick-up order.
func (s State) ShoppingList() []model.Grocery {
	return selectors.ShoppingList(s.Groceries)
}

// Suggestions is every grocery matching the current input.
func (s State) Suggestions() []model.Grocery {
	return selectors.FilterGroceries(s.Groceries, s.Input)
}

func Initial(groceries map[string]model.Grocery) State {
	return State{Name: List, Groceries: groceries}
}

func New(groceries map[string]model.Grocery, run fsm.Runner) *fsm.Machine[State] {
	return fsm.NewMachine("shopping", Initial(groceries), Table, run)
}

// existing wraps a handler that needs the grocery named by the payload.
func existing(fn func(State, model.Grocery) (State, fsm.Command)) fsm.Handler[State] {
	return func(s State, ev event.Event) (State, fsm.Command) {
		id, _ := ev.Payload.(string)
		g, ok := s.Groceries[id]
		if !ok {
			return s, nil
		}
		return fn(s, g)
	}
}

var Table = fsm.Table[State]{
	List: {
		ActionSetInput: func(s State, ev event.Event) (State, fsm.Command) {
			s.Input, _ = ev.Payload.(string)
			return s, nil
		},
		ActionAddGrocery: func(s State, ev event.Event) (State, fsm.Command) {
			name := strings.TrimSpace(s.Input)
			id, _ := ev.Payload.(string)
			if name == "" {
				return s, nil
			}
			s.Input = ""
			if g, ok := selectors.FindGrocery(s.Groceries, name); ok {
				return s, command.IncreaseShopCount{ID: g.ID}
			}
			if id == "" {
				return s, nil
			}
			return s, command.StoreGrocery{Grocery: model.Grocery{ID: id, Name: name, ShopCount: 1}}
		},
		ActionIncreaseShopCount: existing(func(s State, g model.Grocery) (State, fsm.Command) {
			return s, command.IncreaseShopCount{ID: g.ID}
		}),
		ActionDecreaseShopCount: existing(func(s State, g model.Grocery) (State, fsm.Command) {
			if g.ShopCount <= 0 {
				return s, nil
			}
			return s, command.DecreaseShopCount{ID: g.ID}
		}),
		ActionShopGrocery: existing(func(s State, g model.Grocery) (State, fsm.Command) {
			list := s.ShoppingList()
			for i, item := range list {
				if item.ID == g.ID {
					return s, command.ShopGrocery{ID: g.ID, ListLength: len(list), Position: i}
				}
			}
			return s, nil
		}),
		ActionDeleteGrocery: existing(func(s State, g model.Grocery) (State, fsm.Command) {
			return s, command.DeleteGrocery{ID: g.ID}
		}),
		event.GroceriesUpdate: func(s State, ev event.Event) (State, fsm.Command) {
			if gs, ok := ev.Payload.(map[string]model.Grocery); ok {
				s.Groceries = gs
			}
			return s, nil
		},
	},
}
