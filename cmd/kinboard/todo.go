package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/dukerupert/kinboard/internal/app"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/selectors"
)

var weekdays = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// parseDate accepts YYYY-MM-DD and the weekday names of the current week.
func parseDate(s string, now time.Time) (model.Date, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return model.DateOf(t), nil
	}
	start, _ := selectors.WeekStart(selectors.WeekID(now), now.Location())
	for i, day := range weekdays {
		if strings.EqualFold(s, day) || strings.EqualFold(s, start.AddDate(0, 0, i).Weekday().String()) {
			return model.DateOf(start.AddDate(0, 0, i)), nil
		}
	}
	return model.Date{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or a weekday", s)
}

func parseClock(s string) (model.Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return model.Clock{}, fmt.Errorf("invalid time %q: use HH:MM", s)
	}
	return model.Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

type todoOptions struct {
	Date    string
	Time    string
	Items   []string
	Grocery string
}

func (o *todoOptions) draft(description string, now time.Time) (app.TodoDraft, error) {
	d := app.TodoDraft{Description: description, CheckList: o.Items, Grocery: o.Grocery}
	if o.Date != "" {
		date, err := parseDate(o.Date, now)
		if err != nil {
			return d, err
		}
		d.Date = &date
	}
	if o.Time != "" {
		if d.Date == nil {
			return d, errors.New("--time needs --date")
		}
		c, err := parseClock(o.Time)
		if err != nil {
			return d, err
		}
		d.Time = &c
	}
	return d, nil
}

func addTodo(topLevel *cobra.Command, o *globalOptions) {
	cmd := &cobra.Command{
		Use:     "todo",
		Aliases: []string{"todos"},
		Short:   "Plan the family's week.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	to := &todoOptions{}
	add := &cobra.Command{
		Use:   "add DESCRIPTION",
		Short: "Add a todo.",
		Example: `
kinboard todo add "Pack for camping" --date fri --item tent --item stove
kinboard todo add "Dentist" --date 2026-03-04 --time 15:30
`,
		Args: cobra.MinimumNArgs(1),
		RunE: withEnv(o, func(cmd *cobra.Command, args []string, e *env) error {
			d, err := to.draft(strings.Join(args, " "), time.Now())
			if err != nil {
				return err
			}
			id, err := e.rt.AddTodo(d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		}),
	}
	add.Flags().StringVarP(&to.Date, "date", "d", "", "Day: YYYY-MM-DD or a weekday of this week.")
	add.Flags().StringVarP(&to.Time, "time", "t", "", "Time of day, HH:MM.")
	add.Flags().StringArrayVarP(&to.Items, "item", "i", nil, "Checklist item; repeat for more.")
	add.Flags().StringVar(&to.Grocery, "grocery", "", "Grocery to buy for it.")

	var next bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the week's todos by day.",
		Args:  cobra.NoArgs,
		RunE: withEnv(o, func(cmd *cobra.Command, _ []string, e *env) error {
			weekID := selectors.WeekID(time.Now())
			if next {
				weekID = selectors.NextWeekID(time.Now())
			}
			fmt.Fprintln(cmd.OutOrStdout(), weekTable(e.store.Todos(), e.store.CheckListItems(), weekID))
			return nil
		}),
	}
	list.Flags().BoolVarP(&next, "next", "n", false, "Show next week.")

	check := &cobra.Command{
		Use:   "check TODO_ID ITEM_ID",
		Short: "Tick or untick a checklist item.",
		Args:  cobra.ExactArgs(2),
		RunE: withEnv(o, func(cmd *cobra.Command, args []string, e *env) error {
			item, err := e.rt.ToggleCheckListItem(args[0], args[1])
			if err != nil {
				return err
			}
			mark := " "
			if item.Completed {
				mark = "x"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", mark, item.Title)
			return nil
		}),
	}

	cmd.AddCommand(add, list, check)
	topLevel.AddCommand(cmd)
}

func weekTable(todos map[string]model.Todo, items map[string]model.CheckListItem, weekID string) *uitable.Table {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.Wrap = true
	tbl.AddRow(bold.Sprint("Day"), bold.Sprint("Time"), bold.Sprint("Todo"), bold.Sprint("ID"))

	days := selectors.TodosByWeekday(todos, weekID)
	for i, day := range days {
		for _, t := range day {
			at := ""
			if t.Time != nil {
				at = fmt.Sprintf("%02d:%02d", t.Time.Hour, t.Time.Minute)
			}
			desc := t.Description
			for _, item := range selectors.CheckListItemsByTodo(items, t.ID) {
				mark := " "
				if item.Completed {
					mark = "x"
				}
				desc += fmt.Sprintf("\n[%s] %s (%s)", mark, item.Title, item.ID)
			}
			tbl.AddRow(weekdays[i], at, desc, t.ID)
		}
	}
	return tbl
}
