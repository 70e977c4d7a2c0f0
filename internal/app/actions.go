package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/kinboard/internal/checklist"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/navigation"
	"github.com/dukerupert/kinboard/internal/selectors"
	"github.com/dukerupert/kinboard/internal/session"
	"github.com/dukerupert/kinboard/internal/shopping"
	"github.com/dukerupert/kinboard/internal/storage"
	"github.com/dukerupert/kinboard/internal/todoeditor"
)

var (
	ErrSignInFailed   = errors.New("app: sign in failed")
	ErrNoFamily       = errors.New("app: no family")
	ErrEmptyName      = errors.New("app: name is required")
	ErrNoSuchGrocery  = errors.New("app: no such grocery")
	ErrNotOnList      = errors.New("app: grocery is not on the shopping list")
	ErrInvalidTodo    = errors.New("app: todo needs a description")
	ErrUnexpectedView = errors.New("app: unexpected view")
)

// The helpers below run one user intent to completion for callers that
// are not a UI, such as the CLI and the HTTP API. They drive the same
// machines a UI would and wait for the resulting writes.

// SignIn waits for the sign-in outcome.
func (r *Runtime) SignIn(email, password string) (session.State, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.Send(event.New(session.ActionSignIn, session.Credentials{Email: email, Password: password}))
	r.Settle()
	s := r.Session.State()
	if s.Name == session.Error {
		return s, fmt.Errorf("%w: %s", ErrSignInFailed, s.Error)
	}
	return s, nil
}

func (r *Runtime) SignOut() session.State {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.Send(event.New(session.ActionSignOut, nil))
	r.Settle()
	return r.Session.State()
}

// CreateFamily creates a family for a user who has none yet and waits for
// its data to load.
func (r *Runtime) CreateFamily(name string) (session.State, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return r.Session.State(), ErrEmptyName
	}
	r.Send(event.New(session.ActionCreateFamily, session.NewFamily{Name: name}))
	r.Settle()
	s := r.Session.State()
	if s.Name != session.SignedIn {
		return s, ErrNoFamily
	}
	return s, nil
}

// within pushes v, runs fn while v is on top and pops v again unless fn
// already left it.
func (r *Runtime) within(v navigation.View, fn func() error) error {
	if err := r.push(v); err != nil {
		return err
	}
	r.Settle()
	defer func() {
		if top, _ := r.View(); top == v {
			r.Back()
			r.Settle()
		}
	}()

	if top, _ := r.View(); top != v {
		return fmt.Errorf("%w: %s", ErrUnexpectedView, top.Kind)
	}
	err := fn()
	r.Settle()
	return err
}

// AddGrocery puts name on the shopping list, reusing a grocery of the same
// name when there is one.
func (r *Runtime) AddGrocery(name string) (model.Grocery, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return model.Grocery{}, ErrEmptyName
	}
	id, err := r.NewID(model.KindGrocery)
	if err != nil {
		return model.Grocery{}, err
	}
	err = r.within(navigation.View{Kind: navigation.GroceriesShopping}, func() error {
		r.Send(event.New(shopping.ActionSetInput, name))
		r.Send(event.New(shopping.ActionAddGrocery, id))
		return nil
	})
	if err != nil {
		return model.Grocery{}, err
	}
	g, ok := selectors.FindGrocery(r.store.Groceries(), name)
	if !ok {
		return model.Grocery{}, fmt.Errorf("add %q: %w", name, ErrNoSuchGrocery)
	}
	return g, nil
}

// ShopGrocery marks the grocery named name as bought.
func (r *Runtime) ShopGrocery(name string) (model.Grocery, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	g, ok := selectors.FindGrocery(r.store.Groceries(), name)
	if !ok {
		return model.Grocery{}, fmt.Errorf("shop %q: %w", name, ErrNoSuchGrocery)
	}
	if g.ShopCount == 0 {
		return g, fmt.Errorf("shop %q: %w", name, ErrNotOnList)
	}
	err := r.within(navigation.View{Kind: navigation.GroceriesShopping}, func() error {
		r.Send(event.New(shopping.ActionShopGrocery, g.ID))
		return nil
	})
	if err != nil {
		return model.Grocery{}, err
	}
	return r.store.Groceries()[g.ID], nil
}

// TodoDraft describes a todo to create. Nil Date and Time leave the todo
// unscheduled.
type TodoDraft struct {
	Description string       `json:"description"`
	Date        *model.Date  `json:"date,omitempty"`
	Time        *model.Clock `json:"time,omitempty"`
	CheckList   []string     `json:"checklist,omitempty"`
	Grocery     string       `json:"grocery,omitempty"`
}

// AddTodo creates a todo through the todo editor and returns its id.
func (r *Runtime) AddTodo(d TodoDraft) (string, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if strings.TrimSpace(d.Description) == "" {
		return "", ErrInvalidTodo
	}
	id, err := r.NewID(model.KindTodo)
	if err != nil {
		return "", err
	}
	err = r.within(navigation.View{Kind: navigation.EditTodo, ID: id}, func() error {
		r.Send(event.New(todoeditor.ActionSetDescription, d.Description))
		if d.Date != nil {
			r.Send(event.New(todoeditor.ActionToggleDate, nil))
			r.Send(event.New(todoeditor.ActionSetDate, *d.Date))
		}
		if d.Time != nil {
			r.Send(event.New(todoeditor.ActionToggleTime, nil))
			r.Send(event.New(todoeditor.ActionSetTime, *d.Time))
		}
		if len(d.CheckList) > 0 {
			r.Send(event.New(todoeditor.ActionToggleCheckList, nil))
			for _, title := range d.CheckList {
				r.Send(event.New(todoeditor.ActionSetNewCheckListItem, title))
				r.Send(event.New(todoeditor.ActionAddCheckListItem, nil))
			}
		}
		if d.Grocery != "" {
			r.Send(event.New(todoeditor.ActionSetGrocery, d.Grocery))
		}
		r.Settle()

		_, st := r.View()
		if s, ok := st.(todoeditor.State); !ok || s.Validation != todoeditor.Valid {
			return ErrInvalidTodo
		}
		r.Send(event.New(todoeditor.ActionAddTodo, nil))
		return nil
	})
	if err != nil {
		return "", err
	}
	if _, ok := r.store.Todos()[id]; !ok {
		return "", fmt.Errorf("add todo %s: not stored", id)
	}
	return id, nil
}

// ToggleCheckListItem flips an item of the todo's checklist.
func (r *Runtime) ToggleCheckListItem(todoID, itemID string) (model.CheckListItem, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	err := r.within(navigation.View{Kind: navigation.CheckLists, ID: todoID}, func() error {
		r.Send(event.New(checklist.ActionToggleItem, itemID))
		return nil
	})
	if err != nil {
		return model.CheckListItem{}, err
	}
	item, ok := r.store.CheckListItems()[itemID]
	if !ok || item.TodoID != todoID {
		return model.CheckListItem{}, fmt.Errorf("toggle item %s: %w", itemID, storage.ErrNotFound)
	}
	return item, nil
}
