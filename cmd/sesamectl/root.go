package main

import (
	"github.com/spf13/cobra"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/session"
)

type rootOptions struct {
	configPath string
	verbose    bool

	// clock drives the controller; nil means the wall clock.
	clock session.Clock
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sesamectl",
		Short: "Enroll and unlock perceptual patterns",
		Long: `sesamectl - command-line host for the Sesame unlock engine.

A pattern is something you mix, place, draw or tap rather than type.
Enroll one or more modalities, then unlock by reproducing any of them.

Configuration is read from --config, ./config.{toml,json,yaml} or the
platform config directory. SESAME_* environment variables override it.

Examples:
  # Enroll a color and unlock with a close match
  sesamectl color enroll 200 120 40
  sesamectl color unlock 205 118 45

  # Enroll three shapes on the 8x8 grid
  sesamectl shape enroll circle:1:1 square:4:2 triangle:6:6

  # Drive any modality from an event stream
  printf 'register\nselect tap\ntap\n' | sesamectl run`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: search standard locations)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(
		newStatusCmd(opts),
		newResetCmd(opts),
		newInspectCmd(opts),
		newColorCmd(opts),
		newShapeCmd(opts),
		newRunCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}
