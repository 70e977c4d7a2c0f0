package shopping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/model"
)

func groceries() map[string]model.Grocery {
	return map[string]model.Grocery{
		"milk":  {ID: "milk", Name: "Milk", ShopCount: 1, ShopHistory: map[int]int{2: 1}},
		"eggs":  {ID: "eggs", Name: "Eggs", ShopCount: 2, ShopHistory: map[int]int{2: 0}},
		"flour": {ID: "flour", Name: "Flour"},
	}
}

func newTestMachine() (*fsm.Machine[State], *[]fsm.Command) {
	var cmds []fsm.Command
	m := New(groceries(), func(c fsm.Command) { cmds = append(cmds, c) })
	return m, &cmds
}

func TestAddGroceryMatchingNameIncreasesCount(t *testing.T) {
	m, cmds := newTestMachine()
	m.Dispatch(event.New(ActionSetInput, " fLoUr "))
	m.Dispatch(event.New(ActionAddGrocery, "new-id"))

	assert.Equal(t, []fsm.Command{command.IncreaseShopCount{ID: "flour"}}, *cmds)
	assert.Empty(t, m.State().Input)
}

func TestAddGroceryCreatesNewGrocery(t *testing.T) {
	m, cmds := newTestMachine()
	m.Dispatch(event.New(ActionSetInput, "Butter"))
	m.Dispatch(event.New(ActionAddGrocery, "g9"))

	require.Len(t, *cmds, 1)
	assert.Equal(t, command.StoreGrocery{Grocery: model.Grocery{ID: "g9", Name: "Butter", ShopCount: 1}}, (*cmds)[0])
}

func TestAddGroceryIgnoresBlankInput(t *testing.T) {
	m, cmds := newTestMachine()
	m.Dispatch(event.New(ActionSetInput, "   "))
	m.Dispatch(event.New(ActionAddGrocery, "g9"))
	assert.Empty(t, *cmds)
}

func TestShopGroceryUsesShoppingOrder(t *testing.T) {
	m, cmds := newTestMachine()
	assert.Equal(t, []string{"eggs", "milk"}, ids(m.State().ShoppingList()))

	m.Dispatch(event.New(ActionShopGrocery, "milk"))
	m.Dispatch(event.New(ActionShopGrocery, "flour"))

	assert.Equal(t, []fsm.Command{command.ShopGrocery{ID: "milk", ListLength: 2, Position: 1}}, *cmds)
}

func TestShopCountChanges(t *testing.T) {
	m, cmds := newTestMachine()
	m.Dispatch(event.New(ActionIncreaseShopCount, "flour"))
	m.Dispatch(event.New(ActionDecreaseShopCount, "flour"))
	m.Dispatch(event.New(ActionDecreaseShopCount, "milk"))
	m.Dispatch(event.New(ActionIncreaseShopCount, "missing"))
	m.Dispatch(event.New(ActionDeleteGrocery, "eggs"))

	assert.Equal(t, []fsm.Command{
		command.IncreaseShopCount{ID: "flour"},
		command.DecreaseShopCount{ID: "milk"},
		command.DeleteGrocery{ID: "eggs"},
	}, *cmds)
}

func TestGroceriesUpdateRefreshesSnapshot(t *testing.T) {
	m, _ := newTestMachine()
	m.Dispatch(event.New(event.GroceriesUpdate, map[string]model.Grocery{
		"bread": {ID: "bread", Name: "Bread", ShopCount: 1},
	}))

	assert.Equal(t, []string{"bread"}, ids(m.State().ShoppingList()))
	m.Dispatch(event.New(ActionSetInput, "Brd"))
	assert.Equal(t, []string{"bread"}, ids(m.State().Suggestions()))
}

func ids(gs []model.Grocery) []string {
	var out []string
	for _, g := range gs {
		out = append(out, g.ID)
	}
	return out
}
