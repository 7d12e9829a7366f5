package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "blobpack",
		Short: "Build, inspect, and extract blobpack containers",
		Long: `blobpack manages seekable container files that bundle directory trees
into a single distributable artifact with a JSON index and per-entry
compressed payloads.

Three container kinds are supported: application catalogs (app),
binary-package catalogs (bin), and mutable user-data stores (user).`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newAppCommand())
	root.AddCommand(newBinCommand())
	root.AddCommand(newUserCommand())

	return root
}
