package main

import (
	"github.com/spf13/cobra"
)

// globalOptions are the flags every command accepts. Flag names match
// configuration keys with dashes for underscores.
type globalOptions struct {
	ConfigDir string
	DBPath    string
	TokenDir  string
	LogLevel  string
	Secret    string
}

func addGlobalArgs(cmd *cobra.Command, o *globalOptions) {
	cmd.PersistentFlags().StringVar(&o.ConfigDir, "config-dir", "",
		"Directory holding .kinboard.yaml.")
	cmd.PersistentFlags().StringVar(&o.DBPath, "db-path", "",
		"SQLite database file.")
	cmd.PersistentFlags().StringVar(&o.TokenDir, "token-dir", "",
		"Directory the session token is cached in.")
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", "",
		"One of debug, info, warn or error.")
	cmd.PersistentFlags().StringVar(&o.Secret, "secret", "",
		"Secret session tokens are signed with.")
}

func newRootCommand() *cobra.Command {
	o := &globalOptions{}
	cmd := &cobra.Command{
		Use:          "kinboard",
		Short:        "Family dashboard for groceries, todos and dinners.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	addGlobalArgs(cmd, o)

	addServe(cmd, o)
	addAccount(cmd, o)
	addFamily(cmd, o)
	addGrocery(cmd, o)
	addTodo(cmd, o)
	addVersion(cmd, o)
	return cmd
}
