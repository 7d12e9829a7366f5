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

func newBinCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bin",
		Short: "Manage binary-package catalogs",
	}
	cmd.AddCommand(
		newBinCreateCommand(),
		newBinAddCommand(),
		newBinBuildCommand(),
		newBinListCommand(),
		newBinInfoCommand(),
		newBinDepsCommand(),
		newBinVerifyCommand(),
		newBinExtractCommand(),
	)
	return cmd
}

func newBinCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <container>",
		Short: "Create an empty binary catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := blobpack.NewWriter(blobpack.Binaries, args[0],
				blobpack.WriterWithLogger(slog.Default()))
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Build(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func newBinAddCommand() *cobra.Command {
	var (
		provides    []string
		env         []string
		deps        []string
		version     string
		description string
		arch        string
		osType      string
		autoDetect  bool
		level       int
	)

	cmd := &cobra.Command{
		Use:   "add <container> <key> <source-dir>",
		Short: "Add one binary package to a catalog",
		Long: `Add packs source-dir as one binary package. With --auto-detect the
provides list is derived from executables found under bin, sbin, usr/bin
and usr/sbin inside the source tree.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, key, src := args[0], args[1], args[2]

			if autoDetect {
				detected, err := detectProvides(src)
				if err != nil {
					return err
				}
				provides = append(provides, detected...)
			}
			envVars, err := parseEnvFlags(env)
			if err != nil {
				return err
			}

			w, err := openOrCreateBinWriter(container, level)
			if err != nil {
				return err
			}
			defer w.Close()

			rec := &blobpack.BinaryEntry{
				EntryBase: blobpack.EntryBase{
					Key:          key,
					Version:      version,
					Description:  description,
					Dependencies: deps,
				},
				Provides:     provides,
				EnvVars:      envVars,
				Architecture: arch,
				OSType:       osType,
			}
			if err := w.Add(cmd.Context(), rec, src); err != nil {
				return err
			}
			if err := w.Build(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "added %s to %s (%d entries)\n", key, container, w.Len())
			if len(rec.Provides) > 0 {
				fmt.Fprintf(out, "provides: %s\n", strings.Join(rec.Provides, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&provides, "provides", nil, "capability names this package supplies")
	cmd.Flags().StringArrayVar(&env, "env", nil, "environment variable as KEY=VALUE (repeatable)")
	cmd.Flags().StringSliceVar(&deps, "dependencies", nil, "dependency keys")
	cmd.Flags().StringVar(&version, "version", "", "package version")
	cmd.Flags().StringVar(&description, "description", "", "package description")
	cmd.Flags().StringVar(&arch, "architecture", "", "target architecture (e.g. amd64)")
	cmd.Flags().StringVar(&osType, "os", "", "target operating system (e.g. linux)")
	cmd.Flags().BoolVar(&autoDetect, "auto-detect", false, "derive provides from executables in standard bin dirs")
	cmd.Flags().IntVar(&level, "level", blobpack.DefaultCompressionLevel, "zlib compression level (0-9)")
	return cmd
}

func newBinBuildCommand() *cobra.Command {
	var (
		configPath string
		output     string
		level      int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a binary catalog from a batch config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := batch.Load(configPath)
			if err != nil {
				return err
			}
			if len(doc.Binaries) == 0 {
				return fmt.Errorf("%s lists no binaries", configPath)
			}

			w, err := blobpack.NewWriter(blobpack.Binaries, output,
				blobpack.WriterWithCompressionLevel(level),
				blobpack.WriterWithLogger(slog.Default()))
			if err != nil {
				return err
			}
			defer w.Close()

			baseDir := filepath.Dir(configPath)
			bar := newProgress(len(doc.Binaries))
			for _, bin := range doc.Binaries {
				src := filepath.Join(baseDir, filepath.FromSlash(bin.Source))
				provides := bin.Provides
				if len(provides) == 0 {
					detected, err := detectProvides(src)
					if err != nil {
						return fmt.Errorf("detect provides for %s: %w", bin.Key, err)
					}
					provides = detected
				}
				rec := &blobpack.BinaryEntry{
					EntryBase: blobpack.EntryBase{
						Key:          bin.Key,
						Version:      bin.Version,
						Description:  bin.Description,
						Dependencies: bin.Dependencies,
					},
					Provides:     provides,
					EnvVars:      bin.Env,
					Architecture: bin.Architecture,
					OSType:       bin.OS,
				}
				if err := w.Add(cmd.Context(), rec, src); err != nil {
					return fmt.Errorf("add %s: %w", bin.Key, err)
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
	cmd.Flags().StringVarP(&output, "output", "o", "binaries.blob", "output container path")
	cmd.Flags().IntVar(&level, "level", blobpack.DefaultCompressionLevel, "zlib compression level (0-9)")
	return cmd
}

func newBinListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <container>",
		Short: "List catalog entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := blobpack.Open(blobpack.Binaries, args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			rows := make([][]string, 0, r.Len())
			for rec := range r.Records() {
				rows = append(rows, []string{
					rec.Key,
					rec.Version,
					strings.Join(rec.Provides, ", "),
					humanSize(rec.Size),
					strings.Join(rec.Dependencies, ", "),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"Key", "Version", "Provides", "Size", "Dependencies"}, rows)
			printContainerSummary(cmd, r.Path(), r.Len(), r.Size())
			return nil
		},
	}
	return cmd
}

func newBinInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <container> <key>",
		Short: "Show one entry in detail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := blobpack.Open(blobpack.Binaries, args[0])
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
			if rec.Architecture != "" || rec.OSType != "" {
				fmt.Fprintf(out, "Platform:     %s/%s\n", rec.OSType, rec.Architecture)
			}
			if len(rec.Provides) > 0 {
				fmt.Fprintf(out, "Provides:     %s\n", strings.Join(rec.Provides, ", "))
			}
			printBaseInfo(out, &rec.EntryBase)
			if len(rec.Executables) > 0 {
				fmt.Fprintf(out, "Executables:  %s\n", strings.Join(rec.Executables, ", "))
			}
			if len(rec.Libraries) > 0 {
				fmt.Fprintf(out, "Libraries:    %s\n", strings.Join(rec.Libraries, ", "))
			}
			for k, v := range rec.EnvVars {
				fmt.Fprintf(out, "Env:          %s=%s\n", k, v)
			}
			return nil
		},
	}
	return cmd
}

func newBinDepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps <container> <key>",
		Short: "Show a package's dependency tree and resolution order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := blobpack.Open(blobpack.Binaries, args[0],
				blobpack.ReaderWithLogger(slog.Default()))
			if err != nil {
				return err
			}
			defer r.Close()

			key := args[1]
			if _, ok := r.Record(key); !ok {
				return fmt.Errorf("%w: %q", blobpack.ErrNotFound, key)
			}

			out := cmd.OutOrStdout()
			renderDepTree(out, r, key)
			order := r.Resolve(key)
			fmt.Fprintf(out, "\nresolution order: %s\n", strings.Join(order, " "))
			return nil
		},
	}
	return cmd
}

func newBinVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <container>",
		Short: "Verify every entry's checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := blobpack.Open(blobpack.Binaries, args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			return reportVerify(cmd, r.Len(), r.VerifyAll())
		},
	}
	return cmd
}

func newBinExtractCommand() *cobra.Command {
	var (
		all      bool
		withDeps bool
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "extract <container> <dest-dir> [key...]",
		Short: "Extract binary packages into a destination directory",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, dest, keys := args[0], args[1], args[2:]
			if all == (len(keys) > 0) {
				return fmt.Errorf("name keys to extract or pass --all, not both")
			}

			r, err := blobpack.Open(blobpack.Binaries, container,
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

func openOrCreateBinWriter(container string, level int) (*blobpack.Writer[*blobpack.BinaryEntry], error) {
	opts := []blobpack.WriterOption{
		blobpack.WriterWithCompressionLevel(level),
		blobpack.WriterWithLogger(slog.Default()),
	}
	if _, err := os.Stat(container); os.IsNotExist(err) {
		return blobpack.NewWriter(blobpack.Binaries, container, opts...)
	}
	return blobpack.OpenWriter(blobpack.Binaries, container, opts...)
}

// standard locations searched by --auto-detect, relative to the source root.
var binDirs = []string{"bin", "sbin", "usr/bin", "usr/sbin"}

// detectProvides lists the names of executable regular files in the
// standard bin directories of the source tree.
func detectProvides(sourceDir string) ([]string, error) {
	var provides []string
	seen := make(map[string]bool)
	for _, dir := range binDirs {
		entries, err := os.ReadDir(filepath.Join(sourceDir, filepath.FromSlash(dir)))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return nil, err
			}
			if info.Mode()&0o111 == 0 || seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true
			provides = append(provides, e.Name())
		}
	}
	return provides, nil
}

func parseEnvFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --env value %q, want KEY=VALUE", p)
		}
		env[k] = v
	}
	return env, nil
}
