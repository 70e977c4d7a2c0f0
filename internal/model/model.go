package model

import "time"

// Kind names an entity collection in the remote store.
type Kind string

const (
	KindGrocery       Kind = "grocery"
	KindTodo          Kind = "todo"
	KindCheckListItem Kind = "checklist_item"
	KindDinner        Kind = "dinner"
	KindWeek          Kind = "week"
	KindFamily        Kind = "family"
)

// Collections lists the per-family collections loaded on startup.
var Collections = []Kind{KindGrocery, KindTodo, KindCheckListItem, KindDinner, KindWeek}

type Grocery struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	DinnerID    string      `json:"dinner_id,omitempty"`
	Created     time.Time   `json:"created"`
	Modified    time.Time   `json:"modified"`
	ShopCount   int         `json:"shop_count"`
	ShopHistory map[int]int `json:"shop_history,omitempty"` // list length -> position
	Image       string      `json:"image,omitempty"`
}

type Todo struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Date        *Date     `json:"date,omitempty"`
	Time        *Clock    `json:"time,omitempty"`
	CheckList   bool      `json:"check_list,omitempty"`
	Grocery     string    `json:"grocery,omitempty"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}

// Date is a calendar day without time of day.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Time returns midnight of the day in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

// Clock is a time of day.
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

type CheckListItem struct {
	ID          string    `json:"id"`
	TodoID      string    `json:"todo_id"`
	Title       string    `json:"title"`
	Completed   bool      `json:"completed"`
	CompletedBy string    `json:"completed_by,omitempty"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}

type Dinner struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Instructions []string  `json:"instructions"`
	Groceries    []string  `json:"groceries"`
	Preparations []string  `json:"preparations"`
	Image        string    `json:"image,omitempty"`
	Created      time.Time `json:"created"`
	Modified     time.Time `json:"modified"`
}

// Clone returns a copy that shares no slices with d.
func (d Dinner) Clone() Dinner {
	d.Instructions = append([]string(nil), d.Instructions...)
	d.Groceries = append([]string(nil), d.Groceries...)
	d.Preparations = append([]string(nil), d.Preparations...)
	return d
}

// Activity records, per weekday starting Monday, whether a user is assigned
// to a todo.
type Activity [7]bool

// Week is keyed by the ID of its Monday (YYYYMMDD).
type Week struct {
	ID       string                         `json:"id"`
	Dinners  [7]string                      `json:"dinners"`
	Todos    map[string]map[string]Activity `json:"todos"` // todo id -> user id -> activity
	Created  time.Time                      `json:"created"`
	Modified time.Time                      `json:"modified"`
}

// Activity returns the user's vector for the todo, all false when absent.
func (w Week) Activity(todoID, userID string) Activity {
	return w.Todos[todoID][userID]
}

// Clone returns a deep copy of w.
func (w Week) Clone() Week {
	if w.Todos == nil {
		return w
	}
	todos := make(map[string]map[string]Activity, len(w.Todos))
	for todoID, users := range w.Todos {
		u := make(map[string]Activity, len(users))
		for userID, a := range users {
			u[userID] = a
		}
		todos[todoID] = u
	}
	w.Todos = todos
	return w
}

type FamilyMember struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type Family struct {
	ID      string                  `json:"id"`
	Name    string                  `json:"name"`
	Users   map[string]FamilyMember `json:"users"`
	Created time.Time               `json:"created"`
}

// User is the signed-in identity.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	FamilyID string `json:"family_id,omitempty"`
}
