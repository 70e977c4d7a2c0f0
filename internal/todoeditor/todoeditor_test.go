package todoeditor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/model"
)

var now = time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

func newTestMachine(t model.Todo, isNew bool) (*fsm.Machine[State], *[]fsm.Command) {
	var cmds []fsm.Command
	m := New(t, isNew, func() time.Time { return now }, func(c fsm.Command) { cmds = append(cmds, c) })
	return m, &cmds
}

func TestAddTodoScenario(t *testing.T) {
	m, cmds := newTestMachine(model.Todo{ID: "t1"}, true)
	assert.Equal(t, Invalid, m.State().Validation)

	m.Dispatch(event.New(ActionSetDescription, "  Pack for camping "))
	assert.Equal(t, Valid, m.State().Validation)

	m.Dispatch(event.New(ActionToggleDate, nil))
	m.Dispatch(event.New(ActionSetDate, model.Date{Year: 2026, Month: 3, Day: 7}))
	m.Dispatch(event.New(ActionToggleTime, nil))
	m.Dispatch(event.New(ActionSetTime, model.Clock{Hour: 8, Minute: 15}))
	m.Dispatch(event.New(ActionToggleCheckList, nil))
	m.Dispatch(event.New(ActionSetNewCheckListItem, "Tent"))
	m.Dispatch(event.New(ActionAddCheckListItem, nil))
	m.Dispatch(event.New(ActionSetNewCheckListItem, "Sleeping bags"))
	m.Dispatch(event.New(ActionAddCheckListItem, nil))

	m.Dispatch(event.New(ActionAddTodo, nil))

	require.Len(t, *cmds, 2)
	store := (*cmds)[0].(command.StoreTodo)
	assert.Equal(t, "t1", store.Todo.ID)
	assert.Equal(t, "  Pack for camping ", store.Todo.Description)
	assert.Equal(t, &model.Date{Year: 2026, Month: 3, Day: 7}, store.Todo.Date)
	assert.Equal(t, &model.Clock{Hour: 8, Minute: 15}, store.Todo.Time)
	assert.True(t, store.Todo.CheckList)
	assert.Equal(t, []string{"Tent", "Sleeping bags"}, store.CheckList)
	assert.Equal(t, command.Exit{}, (*cmds)[1])
}

func TestAddTodoRequiresDescription(t *testing.T) {
	m, cmds := newTestMachine(model.Todo{ID: "t1"}, true)
	m.Dispatch(event.New(ActionAddTodo, nil))
	m.Dispatch(event.New(ActionSetDescription, "   "))
	m.Dispatch(event.New(ActionAddTodo, nil))

	assert.Equal(t, Invalid, m.State().Validation)
	assert.Empty(t, *cmds)
}

func TestActivationSeedsDefaults(t *testing.T) {
	m, _ := newTestMachine(model.Todo{ID: "t1"}, true)

	m.Dispatch(event.New(ActionToggleDate, nil))
	m.Dispatch(event.New(ActionToggleTime, nil))
	m.Dispatch(event.New(ActionToggleCheckList, nil))

	s := m.State()
	assert.Equal(t, DateState{Status: Active, Value: model.Date{Year: 2026, Month: 3, Day: 4}}, s.Date)
	assert.Equal(t, TimeState{Status: Active, Value: model.Clock{Hour: 10}}, s.Time)
	assert.Equal(t, Active, s.CheckList.Status)
	assert.Empty(t, s.CheckList.Items)
}

func TestDeactivationDiscardsDraft(t *testing.T) {
	m, cmds := newTestMachine(model.Todo{ID: "t1", Description: "Dentist"}, true)

	m.Dispatch(event.New(ActionToggleDate, nil))
	m.Dispatch(event.New(ActionSetDate, model.Date{Year: 2027, Month: 1, Day: 1}))
	m.Dispatch(event.New(ActionToggleDate, nil))
	m.Dispatch(event.New(ActionToggleCheckList, nil))
	m.Dispatch(event.New(ActionSetNewCheckListItem, "x"))
	m.Dispatch(event.New(ActionAddCheckListItem, nil))
	m.Dispatch(event.New(ActionToggleCheckList, nil))

	s := m.State()
	assert.Equal(t, DateState{Status: Inactive}, s.Date)
	assert.Equal(t, CheckListState{Status: Inactive}, s.CheckList)

	// Turning the date on again seeds today rather than the old draft.
	m.Dispatch(event.New(ActionToggleDate, nil))
	assert.Equal(t, model.Date{Year: 2026, Month: 3, Day: 4}, m.State().Date.Value)
	m.Dispatch(event.New(ActionToggleDate, nil))

	m.Dispatch(event.New(ActionAddTodo, nil))
	store := (*cmds)[0].(command.StoreTodo)
	assert.Nil(t, store.Todo.Date)
	assert.Nil(t, store.Todo.Time)
	assert.False(t, store.Todo.CheckList)
	assert.Nil(t, store.CheckList)
}

func TestSettersIgnoredWhileInactive(t *testing.T) {
	m, _ := newTestMachine(model.Todo{ID: "t1"}, true)
	m.Dispatch(event.New(ActionSetDate, model.Date{Year: 2027, Month: 1, Day: 1}))
	m.Dispatch(event.New(ActionSetTime, model.Clock{Hour: 9}))
	m.Dispatch(event.New(ActionSetNewCheckListItem, "x"))
	m.Dispatch(event.New(ActionAddCheckListItem, nil))

	s := m.State()
	assert.Equal(t, DateState{Status: Inactive}, s.Date)
	assert.Equal(t, TimeState{Status: Inactive}, s.Time)
	assert.Empty(t, s.CheckList.Items)
}

func TestRemoveCheckListItem(t *testing.T) {
	m, _ := newTestMachine(model.Todo{ID: "t1"}, true)
	m.Dispatch(event.New(ActionToggleCheckList, nil))
	for _, title := range []string{"a", "b", "c"} {
		m.Dispatch(event.New(ActionSetNewCheckListItem, title))
		m.Dispatch(event.New(ActionAddCheckListItem, nil))
	}
	m.Dispatch(event.New(ActionRemoveCheckListItem, 1))
	m.Dispatch(event.New(ActionRemoveCheckListItem, 9))

	assert.Equal(t, []string{"a", "c"}, m.State().CheckList.Items)
}

func TestExistingTodoStartsWithItsParts(t *testing.T) {
	date := model.Date{Year: 2026, Month: 5, Day: 1}
	clock := model.Clock{Hour: 18}
	m, cmds := newTestMachine(model.Todo{ID: "t9", Description: "Recital", Date: &date, Time: &clock}, false)

	s := m.State()
	assert.Equal(t, Valid, s.Validation)
	assert.Equal(t, DateState{Status: Active, Value: date}, s.Date)
	assert.Equal(t, TimeState{Status: Active, Value: clock}, s.Time)

	m.Dispatch(event.New(ActionArchiveTodo, nil))
	assert.Equal(t, []fsm.Command{command.ArchiveTodo{ID: "t9"}, command.Exit{}}, *cmds)
}

func TestNewTodoCannotBeArchived(t *testing.T) {
	m, cmds := newTestMachine(model.Todo{ID: "t1", Description: "x"}, true)
	m.Dispatch(event.New(ActionArchiveTodo, nil))
	assert.Empty(t, *cmds)
}

func TestSetGrocery(t *testing.T) {
	m, cmds := newTestMachine(model.Todo{ID: "t1", Description: "Buy"}, true)
	m.Dispatch(event.New(ActionSetGrocery, "g1"))
	m.Dispatch(event.New(ActionAddTodo, nil))
	assert.Equal(t, "g1", (*cmds)[0].(command.StoreTodo).Todo.Grocery)
}
