// Package command defines the side effects feature machines may request.
// Commands are plain data; app.Runtime executes them.
package command

import "github.com/dukerupert/kinboard/internal/model"

// Session

type SignIn struct {
	Email    string
	Password string
}

type SignOut struct{}

type CreateFamily struct {
	Name string
}

type CheckVersion struct{}

type ReloadApp struct {
	Version string
}

func (SignIn) Command() string       { return "SIGN_IN" }
func (SignOut) Command() string      { return "SIGN_OUT" }
func (CreateFamily) Command() string { return "CREATE_FAMILY" }
func (CheckVersion) Command() string { return "CHECK_VERSION" }
func (ReloadApp) Command() string    { return "RELOAD_APP" }

// Loading

type LoadFamily struct {
	FamilyID string
	UserID   string
}

func (LoadFamily) Command() string { return "LOAD_FAMILY" }

// Groceries

type StoreGrocery struct {
	Grocery model.Grocery
}

type IncreaseShopCount struct {
	ID string
}

type DecreaseShopCount struct {
	ID string
}

// ShopGrocery marks a grocery as bought while the shopping list had
// ListLength entries and the grocery sat at Position.
type ShopGrocery struct {
	ID         string
	ListLength int
	Position   int
}

type DeleteGrocery struct {
	ID string
}

func (StoreGrocery) Command() string      { return "STORE_GROCERY" }
func (IncreaseShopCount) Command() string { return "INCREASE_SHOP_COUNT" }
func (DecreaseShopCount) Command() string { return "DECREASE_SHOP_COUNT" }
func (ShopGrocery) Command() string       { return "SHOP_GROCERY" }
func (DeleteGrocery) Command() string     { return "DELETE_GROCERY" }

// Todos and checklists

type StoreTodo struct {
	Todo      model.Todo
	CheckList []string
}

type ArchiveTodo struct {
	ID string
}

type StoreCheckListItem struct {
	Item model.CheckListItem
}

type DeleteCheckListItem struct {
	ID string
}

func (StoreTodo) Command() string           { return "STORE_TODO" }
func (ArchiveTodo) Command() string         { return "ARCHIVE_TODO" }
func (StoreCheckListItem) Command() string  { return "STORE_CHECKLIST_ITEM" }
func (DeleteCheckListItem) Command() string { return "DELETE_CHECKLIST_ITEM" }

// Dinners and weeks

type StoreDinner struct {
	Dinner model.Dinner
}

type DeleteDinner struct {
	ID string
}

type SetWeekActivity struct {
	WeekID   string
	TodoID   string
	Activity model.Activity
}

type SetWeekDinner struct {
	WeekID   string
	Weekday  int
	DinnerID string
}

func (StoreDinner) Command() string     { return "STORE_DINNER" }
func (DeleteDinner) Command() string    { return "DELETE_DINNER" }
func (SetWeekActivity) Command() string { return "SET_WEEK_ACTIVITY" }
func (SetWeekDinner) Command() string   { return "SET_WEEK_DINNER" }

// Capture

type StartCamera struct{}

type Capture struct{}

type UseImage struct {
	Src string
}

func (StartCamera) Command() string { return "START_CAMERA" }
func (Capture) Command() string     { return "CAPTURE" }
func (UseImage) Command() string    { return "USE_IMAGE" }

// Exit asks the parent navigation to pop the current screen.
type Exit struct{}

func (Exit) Command() string { return "EXIT" }
