package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blobpack/blobpack"
	"github.com/blobpack/blobpack/batch"
)

func newAppCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Manage application catalogs",
	}
	cmd.AddCommand(
		newAppInitCommand(),
		newAppBuildCommand(),
		newAppAddCommand(),
		newAppListCommand(),
		newAppInfoCommand(),
		newAppExtractCommand(),
		newAppVerifyCommand(),
	)
	return cmd
}

func newAppInitCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample batch config and scaffold its source directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists", configPath)
			}
			doc := batch.Sample()
			if err := doc.Write(configPath); err != nil {
				return err
			}
			if err := doc.Scaffold(filepath.Dir(configPath)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s with %d sample applications\n",
				configPath, len(doc.Applications))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "blobpack.yaml", "config file to create")
	return cmd
}

func newAppBuildCommand() *cobra.Command {
	var (
		configPath string
		output     string
		level      int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an application catalog from a batch config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := batch.Load(configPath)
			if err != nil {
				return err
			}
			if len(doc.Applications) == 0 {
				return fmt.Errorf("%s lists no applications", configPath)
			}

			w, err := blobpack.NewWriter(blobpack.Applications, output,
				blobpack.WriterWithCompressionLevel(level),
				blobpack.WriterWithLogger(slog.Default()))
			if err != nil {
				return err
			}
			defer w.Close()

			baseDir := filepath.Dir(configPath)
			bar := newProgress(len(doc.Applications))
			for _, app := range doc.Applications {
				src := filepath.Join(baseDir, filepath.FromSlash(app.Path))
				rec := &blobpack.ApplicationEntry{
					EntryBase: blobpack.EntryBase{
						Key:          app.Key,
						Version:      app.Version,
						Description:  app.Description,
						Dependencies: app.Dependencies,
					},
					Name: app.Name,
				}
				if err := w.Add(cmd.Context(), rec, src); err != nil {
					return fmt.Errorf("add %s: %w", app.Key, err)
				}
				bar.Increment()
			}
			bar.Finish()

			if err := w.Build(); err != nil {
				return err
			}
			printBuildSummary(cmd, output, w.Len(), w.PayloadSize())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "blobpack.yaml", "batch config file")
	cmd.Flags().StringVarP(&output, "output", "o", "applications.blob", "output container path")
	cmd.Flags().IntVar(&level, "level", blobpack.DefaultCompressionLevel, "zlib compression level (0-9)")
	return cmd
}

func newAppAddCommand() *cobra.Command {
	var (
		name        string
		version     string
		description string
		deps        []string
		level       int
	)

	cmd := &cobra.Command{
		Use:   "add <container> <key> <source-dir>",
		Short: "Add one application to an existing catalog",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, key, src := args[0], args[1], args[2]

			w, err := openOrCreateAppWriter(container, level)
			if err != nil {
				return err
			}
			defer w.Close()

			rec := &blobpack.ApplicationEntry{
				EntryBase: blobpack.EntryBase{
					Key:          key,
					Version:      version,
					Description:  description,
					Dependencies: deps,
				},
				Name: name,
			}
			if err := w.Add(cmd.Context(), rec, src); err != nil {
				return err
			}
			if err := w.Build(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s (%d entries)\n", key, container, w.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "human-readable application name")
	cmd.Flags().StringVar(&version, "version", "", "application version")
	cmd.Flags().StringVar(&description, "description", "", "application description")
	cmd.Flags().StringSliceVar(&deps, "dependencies", nil, "dependency keys")
	cmd.Flags().IntVar(&level, "level", blobpack.DefaultCompressionLevel, "zlib compression level (0-9)")
	return cmd
}

func openOrCreateAppWriter(container string, level int) (*blobpack.Writer[*blobpack.ApplicationEntry], error) {
	opts := []blobpack.WriterOption{
		blobpack.WriterWithCompressionLevel(level),
		blobpack.WriterWithLogger(slog.Default()),
	}
	if _, err := os.Stat(container); os.IsNotExist(err) {
		return blobpack.NewWriter(blobpack.Applications, container, opts...)
	}
	return blobpack.OpenWriter(blobpack.Applications, container, opts...)
}

func newAppListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <container>",
		Short: "List catalog entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := blobpack.Open(blobpack.Applications, args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			rows := make([][]string, 0, r.Len())
			for rec := range r.Records() {
				rows = append(rows, []string{
					rec.Key,
					rec.Name,
					rec.Version,
					humanSize(rec.Size),
					strings.Join(rec.Dependencies, ", "),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"Key", "Name", "Version", "Size", "Dependencies"}, rows)
			printContainerSummary(cmd, r.Path(), r.Len(), r.Size())
			return nil
		},
	}
	return cmd
}

func newAppInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <container> <key>",
		Short: "Show one entry in detail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := blobpack.Open(blobpack.Applications, args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			rec, ok := r.Record(args[1])
			if !ok {
				return fmt.Errorf("%w: %q", blobpack.ErrNotFound, args[1])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Key:          %s\n", rec.Key)
			if rec.Name != "" {
				fmt.Fprintf(out, "Name:         %s\n", rec.Name)
			}
			printBaseInfo(out, &rec.EntryBase)
			return nil
		},
	}
	return cmd
}

func newAppExtractCommand() *cobra.Command {
	var (
		all      bool
		withDeps bool
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "extract <container> <dest-dir> [key...]",
		Short: "Extract applications into a destination directory",
		Long: `Extract unpacks the named applications (or all of them with --all) into
per-key subdirectories of dest-dir. With --with-deps, each key's
dependency closure is extracted too.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, dest, keys := args[0], args[1], args[2:]
			if all == (len(keys) > 0) {
				return fmt.Errorf("name keys to extract or pass --all, not both")
			}

			r, err := blobpack.Open(blobpack.Applications, container,
				blobpack.ReaderWithLogger(slog.Default()))
			if err != nil {
				return err
			}
			defer r.Close()

			if all {
				keys = r.Keys()
			}
			opts := []blobpack.ExtractOption{
				blobpack.ExtractWithVerify(!noVerify),
				blobpack.ExtractWithDependencies(withDeps),
			}
			return reportExtract(cmd, r.ExtractMany(keys, dest, opts...))
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "extract every entry")
	cmd.Flags().BoolVar(&withDeps, "with-deps", false, "extract dependency closures")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip checksum verification")
	return cmd
}

func newAppVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <container>",
		Short: "Verify every entry's checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := blobpack.Open(blobpack.Applications, args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			return reportVerify(cmd, r.Len(), r.VerifyAll())
		},
	}
	return cmd
}
