package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/dukerupert/kinboard/internal/grocery"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/selectors"
)

func addGrocery(topLevel *cobra.Command, o *globalOptions) {
	cmd := &cobra.Command{
		Use:     "grocery",
		Aliases: []string{"groceries"},
		Short:   "Manage the shared shopping list.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Put a grocery on the shopping list.",
		Example: `
kinboard grocery add milk
kinboard grocery add "peanut butter"
`,
		Args: cobra.MinimumNArgs(1),
		RunE: withEnv(o, func(cmd *cobra.Command, args []string, e *env) error {
			g, err := e.rt.AddGrocery(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s x%d\n", g.Name, g.ShopCount)
			return nil
		}),
	}

	var search string
	var all, byAisle bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the shopping list in shopping order.",
		Args:  cobra.NoArgs,
		RunE: withEnv(o, func(cmd *cobra.Command, _ []string, e *env) error {
			groceries := e.store.Groceries()
			var rows []model.Grocery
			switch {
			case search != "":
				rows = selectors.FilterGroceries(groceries, search)
			case all:
				rows = selectors.GroceriesByRecency(groceries)
			default:
				rows = selectors.ShoppingList(groceries)
			}
			if byAisle {
				sort.SliceStable(rows, func(i, j int) bool {
					return grocery.Rank(grocery.AisleOf(rows[i].Name)) < grocery.Rank(grocery.AisleOf(rows[j].Name))
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), groceryTable(rows, len(selectors.ShoppingList(groceries))))
			return nil
		}),
	}
	list.Flags().StringVarP(&search, "search", "s", "", "Fuzzy search all groceries by name.")
	list.Flags().BoolVarP(&all, "all", "a", false, "Include groceries not on the list.")
	list.Flags().BoolVar(&byAisle, "by-aisle", false, "Group the list by store aisle.")

	shop := &cobra.Command{
		Use:   "shop NAME",
		Short: "Mark a grocery as bought.",
		Args:  cobra.MinimumNArgs(1),
		RunE: withEnv(o, func(cmd *cobra.Command, args []string, e *env) error {
			g, err := e.rt.ShopGrocery(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bought %s\n", g.Name)
			return nil
		}),
	}

	cmd.AddCommand(add, list, shop)
	topLevel.AddCommand(cmd)
}

func groceryTable(rows []model.Grocery, listLength int) *uitable.Table {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Grocery"), bold.Sprint("Aisle"), bold.Sprint("Count"), bold.Sprint("Priority"))
	for _, g := range rows {
		priority := "-"
		if g.ShopCount > 0 {
			priority = fmt.Sprintf("%.2f", selectors.ShoppingPriority(g, listLength))
		}
		tbl.AddRow(g.Name, grocery.AisleOf(g.Name), g.ShopCount, priority)
	}
	tbl.RightAlign(2)
	return tbl
}
