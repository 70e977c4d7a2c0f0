package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinboard/internal/session"
)

func printSession(w io.Writer, s session.State) {
	switch s.Name {
	case session.SignedIn:
		fmt.Fprintf(w, "Signed in as %s (family %s)\n", s.User.Email, s.User.FamilyID)
	case session.NoFamily:
		fmt.Fprintf(w, "Signed in as %s; create or join a family next\n", s.User.Email)
	case session.Error:
		fmt.Fprintf(w, "Error: %s\n", s.Error)
	default:
		fmt.Fprintln(w, "Signed out")
	}
}

func addAccount(topLevel *cobra.Command, o *globalOptions) {
	var name, password string
	register := &cobra.Command{
		Use:   "register EMAIL",
		Short: "Create an account and sign in.",
		Example: `
kinboard register ann@example.com --name Ann --password hunter2
`,
		Args: cobra.ExactArgs(1),
		RunE: withEnv(o, func(cmd *cobra.Command, args []string, e *env) error {
			if password == "" {
				return errors.New("--password is required")
			}
			if _, err := e.identity.Register(cmd.Context(), args[0], name, password); err != nil {
				return err
			}
			e.rt.Settle()
			printSession(cmd.OutOrStdout(), e.rt.Session.State())
			return nil
		}),
	}
	register.Flags().StringVar(&name, "name", "", "Display name.")
	register.Flags().StringVar(&password, "password", "", "Account password.")

	var signinPassword string
	signin := &cobra.Command{
		Use:   "signin EMAIL",
		Short: "Sign in and remember the session.",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(o, func(cmd *cobra.Command, args []string, e *env) error {
			s, err := e.rt.SignIn(args[0], signinPassword)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), s)
			return nil
		}),
	}
	signin.Flags().StringVar(&signinPassword, "password", "", "Account password.")

	signout := &cobra.Command{
		Use:   "signout",
		Short: "Forget the remembered session.",
		Args:  cobra.NoArgs,
		RunE: withEnv(o, func(cmd *cobra.Command, _ []string, e *env) error {
			printSession(cmd.OutOrStdout(), e.rt.SignOut())
			return nil
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in.",
		Args:  cobra.NoArgs,
		RunE: withEnv(o, func(cmd *cobra.Command, _ []string, e *env) error {
			snap := e.rt.Snapshot()
			printSession(cmd.OutOrStdout(), snap.Session)
			if snap.Session.Name == session.SignedIn {
				fmt.Fprintf(cmd.OutOrStdout(), "Version %s (%s)\n", e.cfg.Version, snap.Session.Version.Status)
			}
			return nil
		}),
	}

	topLevel.AddCommand(register, signin, signout, status)
}
