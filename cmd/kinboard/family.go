package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

func addFamily(topLevel *cobra.Command, o *globalOptions) {
	cmd := &cobra.Command{
		Use:   "family",
		Short: "Create, join or show your family.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a family and become its first member.",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(o, func(cmd *cobra.Command, args []string, e *env) error {
			s, err := e.rt.CreateFamily(args[0])
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), s)
			return nil
		}),
	}

	join := &cobra.Command{
		Use:   "join FAMILY_ID",
		Short: "Join an existing family.",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(o, func(cmd *cobra.Command, args []string, e *env) error {
			if err := e.identity.JoinFamily(cmd.Context(), args[0]); err != nil {
				return err
			}
			e.rt.Settle()
			printSession(cmd.OutOrStdout(), e.rt.Session.State())
			return nil
		}),
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "List the members of your family.",
		Args:  cobra.NoArgs,
		RunE: withEnv(o, func(cmd *cobra.Command, _ []string, e *env) error {
			f := e.rt.Dashboard.State().Data.Family
			if f.ID == "" {
				return errors.New("no family loaded; sign in first")
			}
			ids := make([]string, 0, len(f.Users))
			for id := range f.Users {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return f.Users[ids[i]].Name < f.Users[ids[j]].Name })

			bold := color.New(color.Bold)
			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.AddRow(bold.Sprint("Member"), bold.Sprint("ID"))
			for _, id := range ids {
				tbl.AddRow(f.Users[id].Name, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", f.Name, f.ID)
			fmt.Fprintln(cmd.OutOrStdout(), tbl)
			return nil
		}),
	}

	cmd.AddCommand(create, join, show)
	topLevel.AddCommand(cmd)
}
