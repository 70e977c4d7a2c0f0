// Package selectors derives view data from the synchronized collections.
// Every function is pure and never mutates its input.
package selectors

import (
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/dukerupert/kinboard/internal/model"
)

const weekIDLayout = "20060102"

// WeekID returns the id of the week containing t: the date of its Monday.
func WeekID(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format(weekIDLayout)
}

func NextWeekID(t time.Time) string {
	return WeekID(t.AddDate(0, 0, 7))
}

// WeekStart parses a week id back into its Monday at midnight in loc.
func WeekStart(weekID string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(weekIDLayout, weekID, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Activity returns the user's assignment for the todo in the week, all
// false when nothing is recorded.
func Activity(weeks map[string]model.Week, weekID, todoID, userID string) model.Activity {
	return weeks[weekID].Activity(todoID, userID)
}

// TodosByWeekday groups the todos dated inside the week by weekday, Monday
// first. Each day is ordered by time of day, untimed todos first.
func TodosByWeekday(todos map[string]model.Todo, weekID string) [7][]model.Todo {
	var days [7][]model.Todo
	start, ok := WeekStart(weekID, time.UTC)
	if !ok {
		return days
	}
	for _, t := range todos {
		if t.Date == nil {
			continue
		}
		d := int(t.Date.Time(time.UTC).Sub(start).Hours() / 24)
		if d < 0 || d > 6 {
			continue
		}
		days[d] = append(days[d], t)
	}
	for i := range days {
		sort.Slice(days[i], func(a, b int) bool {
			return todoBefore(days[i][a], days[i][b])
		})
	}
	return days
}

func todoBefore(a, b model.Todo) bool {
	ma, mb := minutes(a.Time), minutes(b.Time)
	if ma != mb {
		return ma < mb
	}
	if !a.Created.Equal(b.Created) {
		return a.Created.Before(b.Created)
	}
	return a.ID < b.ID
}

func minutes(c *model.Clock) int {
	if c == nil {
		return -1
	}
	return c.Hour*60 + c.Minute
}

// GroceriesByRecency lists groceries most recently modified first.
func GroceriesByRecency(groceries map[string]model.Grocery) []model.Grocery {
	out := make([]model.Grocery, 0, len(groceries))
	for _, g := range groceries {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return recentFirst(out[i], out[j])
	})
	return out
}

func recentFirst(a, b model.Grocery) bool {
	if !a.Modified.Equal(b.Modified) {
		return a.Modified.After(b.Modified)
	}
	return strings.ToLower(a.Name) < strings.ToLower(b.Name)
}

type groceryNames []model.Grocery

func (g groceryNames) String(i int) string { return g[i].Name }
func (g groceryNames) Len() int            { return len(g) }

// FilterGroceries fuzzy-matches input against grocery names, best match
// first. Blank input returns every grocery by recency.
func FilterGroceries(groceries map[string]model.Grocery, input string) []model.Grocery {
	byRecency := GroceriesByRecency(groceries)
	input = strings.TrimSpace(input)
	if input == "" {
		return byRecency
	}
	matches := fuzzy.FindFrom(input, groceryNames(byRecency))
	out := make([]model.Grocery, len(matches))
	for i, m := range matches {
		out[i] = byRecency[m.Index]
	}
	return out
}

// FindGrocery returns the grocery whose name equals name, ignoring case and
// surrounding space.
func FindGrocery(groceries map[string]model.Grocery, name string) (model.Grocery, bool) {
	name = strings.TrimSpace(name)
	for _, g := range GroceriesByRecency(groceries) {
		if strings.EqualFold(strings.TrimSpace(g.Name), name) {
			return g, true
		}
	}
	return model.Grocery{}, false
}

// ShoppingPriority scores where g belongs in a shopping list of listLength
// entries, from 0 (first) to 1 (last), using the positions it was shopped
// at before. Histories from lists of similar length weigh more. Groceries
// never shopped score 1.
func ShoppingPriority(g model.Grocery, listLength int) float64 {
	var sum, weights float64
	for length, pos := range g.ShopHistory {
		if length <= 0 {
			continue
		}
		r := 0.0
		if length > 1 {
			r = float64(pos) / float64(length-1)
		}
		r = min(max(r, 0), 1)
		diff := length - listLength
		if diff < 0 {
			diff = -diff
		}
		w := 1 / float64(1+diff)
		sum += w * r
		weights += w
	}
	if weights == 0 {
		return 1
	}
	return sum / weights
}

// ShoppingList lists the groceries queued for purchase in the order they
// are usually picked up.
func ShoppingList(groceries map[string]model.Grocery) []model.Grocery {
	var out []model.Grocery
	for _, g := range groceries {
		if g.ShopCount > 0 {
			out = append(out, g)
		}
	}
	n := len(out)
	scores := make(map[string]float64, n)
	for _, g := range out {
		scores[g.ID] = ShoppingPriority(g, n)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := scores[out[i].ID], scores[out[j].ID]
		if si != sj {
			return si < sj
		}
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CheckListItemsByTodo returns the items of one todo in creation order.
func CheckListItemsByTodo(items map[string]model.CheckListItem, todoID string) []model.CheckListItem {
	var out []model.CheckListItem
	for _, it := range items {
		if it.TodoID == todoID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func DinnersByName(dinners map[string]model.Dinner) []model.Dinner {
	out := make([]model.Dinner, 0, len(dinners))
	for _, d := range dinners {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type dinnerNames []model.Dinner

func (d dinnerNames) String(i int) string { return d[i].Name }
func (d dinnerNames) Len() int            { return len(d) }

// SearchDinners fuzzy-matches input against dinner names. Blank input
// returns every dinner by name.
func SearchDinners(dinners map[string]model.Dinner, input string) []model.Dinner {
	byName := DinnersByName(dinners)
	input = strings.TrimSpace(input)
	if input == "" {
		return byName
	}
	matches := fuzzy.FindFrom(input, dinnerNames(byName))
	out := make([]model.Dinner, len(matches))
	for i, m := range matches {
		out[i] = byName[m.Index]
	}
	return out
}

// DinnerForWeekday returns the dinner planned for the weekday (0 is
// Monday) of the week.
func DinnerForWeekday(weeks map[string]model.Week, dinners map[string]model.Dinner, weekID string, weekday int) (model.Dinner, bool) {
	if weekday < 0 || weekday > 6 {
		return model.Dinner{}, false
	}
	id := weeks[weekID].Dinners[weekday]
	if id == "" {
		return model.Dinner{}, false
	}
	d, ok := dinners[id]
	return d, ok
}
