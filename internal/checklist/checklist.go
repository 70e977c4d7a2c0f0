// Package checklist ticks off the checklist items of a single todo.
package checklist

import (
	"strings"

	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/selectors"
)

const List = "LIST"

// Actions. ADD_ITEM carries the id minted for the new item; TOGGLE_ITEM and
// REMOVE_ITEM carry the id of an existing item.
const (
	ActionSetNewItemTitle = "SET_NEW_ITEM_TITLE"
	ActionAddItem         = "ADD_ITEM"
	ActionToggleItem      = "TOGGLE_ITEM"
	ActionRemoveItem      = "REMOVE_ITEM"
)

type State struct {
	Name         string                `json:"name"`
	TodoID       string                `json:"todo_id"`
	UserID       string                `json:"user_id"`
	Items        []model.CheckListItem `json:"items"`
	NewItemTitle string                `json:"new_item_title"`
}

func (s State) Kind() string { return s.Name }

func (s State) item(id string) (model.CheckListItem, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return model.CheckListItem{}, false
}

// Initial lists the items of todoID for userID.
func Initial(todoID, userID string, items map[string]model.CheckListItem) State {
	return State{
		Name:   List,
		TodoID: todoID,
		UserID: userID,
		Items:  selectors.CheckListItemsByTodo(items, todoID),
	}
}

func New(todoID, userID string, items map[string]model.CheckListItem, run fsm.Runner) *fsm.Machine[State] {
	return fsm.NewMachine("checklist", Initial(todoID, userID, items), Table, run)
}

var Table = fsm.Table[State]{
	List: {
		ActionSetNewItemTitle: func(s State, ev event.Event) (State, fsm.Command) {
			s.NewItemTitle, _ = ev.Payload.(string)
			return s, nil
		},
		ActionAddItem: func(s State, ev event.Event) (State, fsm.Command) {
			id, _ := ev.Payload.(string)
			title := strings.TrimSpace(s.NewItemTitle)
			if id == "" || title == "" {
				return s, nil
			}
			s.NewItemTitle = ""
			return s, command.StoreCheckListItem{Item: model.CheckListItem{
				ID:     id,
				TodoID: s.TodoID,
				Title:  title,
			}}
		},
		ActionToggleItem: func(s State, ev event.Event) (State, fsm.Command) {
			id, _ := ev.Payload.(string)
			it, ok := s.item(id)
			if !ok {
				return s, nil
			}
			it.Completed = !it.Completed
			it.CompletedBy = ""
			if it.Completed {
				it.CompletedBy = s.UserID
			}
			return s, command.StoreCheckListItem{Item: it}
		},
		ActionRemoveItem: func(s State, ev event.Event) (State, fsm.Command) {
			id, _ := ev.Payload.(string)
			if _, ok := s.item(id); !ok {
				return s, nil
			}
			return s, command.DeleteCheckListItem{ID: id}
		},
		event.CheckListItemsUpdate: func(s State, ev event.Event) (State, fsm.Command) {
			if items, ok := ev.Payload.(map[string]model.CheckListItem); ok {
				s.Items = selectors.CheckListItemsByTodo(items, s.TodoID)
			}
			return s, nil
		},
	},
}
