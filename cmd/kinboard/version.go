package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/config"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/lifecycle"
	"github.com/dukerupert/kinboard/internal/logging"
)

func addVersion(topLevel *cobra.Command, o *globalOptions) {
	check := false
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the kinboard version.",
		Example: `
kinboard version
kinboard version --check
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(o.ConfigDir, cmd.Flags())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Version)
			if !check {
				return nil
			}

			logger := logging.Setup(cfg.LogLevel, cmd.ErrOrStderr())
			b := bus.New(logger)
			var result event.Event
			b.Subscribe(func(ev event.Event) { result = ev })
			lifecycle.NewVersionChecker(lifecycle.VersionConfig{
				Current:     cfg.Version,
				ManifestURL: cfg.ManifestURL,
			}, b, logger).Check(cmd.Context())
			return printVersionCheck(cmd, result)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Compare with the published release.")

	topLevel.AddCommand(cmd)
}

func printVersionCheck(cmd *cobra.Command, ev event.Event) error {
	switch ev.Type {
	case event.NewVersion:
		info, _ := ev.Payload.(event.VersionInfo)
		fmt.Fprintf(cmd.OutOrStdout(), "New version %s available\n", info.NewVersion)
	case event.UpToDate:
		fmt.Fprintln(cmd.OutOrStdout(), "Up to date")
	default:
		return errors.New("version check failed")
	}
	return nil
}
