package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dukerupert/kinboard/internal/model"
)

// Sub-record keys address the parts of a week that different family members
// edit concurrently: one activity vector per (todo, user) and one dinner per
// weekday.

func activityKey(todoID, userID string) string {
	return "todos." + todoID + "." + userID
}

func dinnerKey(weekday int) string {
	return "dinners." + strconv.Itoa(weekday)
}

// weekValue reads the value at key.
func weekValue(w model.Week, key string) (any, error) {
	parts := strings.Split(key, ".")
	switch {
	case len(parts) == 3 && parts[0] == "todos":
		return w.Activity(parts[1], parts[2]), nil
	case len(parts) == 2 && parts[0] == "dinners":
		day, err := weekday(parts[1])
		if err != nil {
			return nil, err
		}
		return w.Dinners[day], nil
	}
	return nil, fmt.Errorf("unknown week key %q", key)
}

// setWeekValue writes value at key. w must not share maps with other copies.
func setWeekValue(w *model.Week, key string, value any) error {
	parts := strings.Split(key, ".")
	switch {
	case len(parts) == 3 && parts[0] == "todos":
		a, ok := value.(model.Activity)
		if !ok {
			return fmt.Errorf("week key %q: want activity, got %T", key, value)
		}
		if w.Todos == nil {
			w.Todos = make(map[string]map[string]model.Activity)
		}
		if w.Todos[parts[1]] == nil {
			w.Todos[parts[1]] = make(map[string]model.Activity)
		}
		w.Todos[parts[1]][parts[2]] = a
		return nil
	case len(parts) == 2 && parts[0] == "dinners":
		day, err := weekday(parts[1])
		if err != nil {
			return err
		}
		id, ok := value.(string)
		if !ok {
			return fmt.Errorf("week key %q: want dinner id, got %T", key, value)
		}
		w.Dinners[day] = id
		return nil
	}
	return fmt.Errorf("unknown week key %q", key)
}

func weekday(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 0 || day > 6 {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return day, nil
}

// mergeWeek takes the remote week and re-applies every sub-key the local
// side has written but the remote store has not yet reflected. Keys the
// remote already agrees with stop being pending.
func mergeWeek(pending map[string]any, remote model.Week) model.Week {
	merged := remote.Clone()
	for key, local := range pending {
		current, err := weekValue(merged, key)
		if err != nil {
			delete(pending, key)
			continue
		}
		if current == local {
			delete(pending, key)
			continue
		}
		_ = setWeekValue(&merged, key, local)
	}
	return merged
}
