package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blobpack/blobpack"
)

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage mutable user-data stores",
	}
	cmd.AddCommand(
		newUserCreateCommand(),
		newUserAddCommand(),
		newUserUpdateCommand(),
		newUserRemoveCommand(),
		newUserListCommand(),
		newUserInfoCommand(),
		newUserCheckpointCommand(),
	)
	return cmd
}

func storeOpts() []blobpack.WriterOption {
	return []blobpack.WriterOption{blobpack.WriterWithLogger(slog.Default())}
}

func newUserCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <store>",
		Short: "Create an empty user-data store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := blobpack.CreateStore(args[0], storeOpts()...)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func newUserAddCommand() *cobra.Command {
	var (
		quotaMB     int64
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <store> <key> <source-dir>",
		Short: "Add a principal's data to the store",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := blobpack.OpenStore(args[0], storeOpts()...)
			if err != nil {
				return err
			}
			defer s.Close()

			rec := &blobpack.UserRecord{
				EntryBase: blobpack.EntryBase{
					Key:         args[1],
					Description: description,
				},
				QuotaMB: quotaMB,
			}
			if err := s.Add(cmd.Context(), rec, args[2]); err != nil {
				return err
			}
			if err := s.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%d records)\n", args[1], s.Len())
			return nil
		},
	}

	cmd.Flags().Int64Var(&quotaMB, "quota", 0, "advisory quota in MB")
	cmd.Flags().StringVar(&description, "description", "", "record description")
	return cmd
}

func newUserUpdateCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "update <store> <key> <source-dir>",
		Short: "Replace a record's data with new content",
		Long: `Update repacks source-dir as the record's new content. In both modes the
stored payload is replaced wholesale; merge mode additionally carries the
revision counter forward, bumping it by one.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m blobpack.UpdateMode
			switch mode {
			case "replace":
				m = blobpack.UpdateReplace
			case "merge":
				m = blobpack.UpdateMerge
			default:
				return fmt.Errorf("invalid --mode %q, want replace or merge", mode)
			}

			s, err := blobpack.OpenStore(args[0], storeOpts()...)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Update(cmd.Context(), args[1], args[2], m); err != nil {
				return err
			}
			if err := s.Save(); err != nil {
				return err
			}
			rec, _ := s.Record(args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (revision %d)\n", args[1], rec.Revision)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "replace", "update mode: replace or merge")
	return cmd
}

func newUserRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <store> <key>",
		Short: "Remove a record from the store",
		Long: `Remove drops the record from the index. Its payload bytes stay in the
file as unreferenced space; rebuild the store from sources to reclaim them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := blobpack.OpenStore(args[0], storeOpts()...)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Remove(args[1]); err != nil {
				return err
			}
			if err := s.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%d records)\n", args[1], s.Len())
			return nil
		},
	}
	return cmd
}

func newUserListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <store>",
		Short: "List store records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := blobpack.Open(blobpack.UserData, args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			rows := make([][]string, 0, r.Len())
			for rec := range r.Records() {
				quota := ""
				if rec.QuotaMB > 0 {
					quota = fmt.Sprintf("%d MB", rec.QuotaMB)
				}
				rows = append(rows, []string{
					rec.Key,
					humanSize(rec.Size),
					fmt.Sprintf("%d", rec.FileCount),
					fmt.Sprintf("%d", rec.Revision),
					quota,
					rec.UpdatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"Key", "Size", "Files", "Revision", "Quota", "Updated"}, rows)
			printContainerSummary(cmd, r.Path(), r.Len(), r.Size())
			return nil
		},
	}
	return cmd
}

func newUserInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <store> <key>",
		Short: "Show one record in detail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := blobpack.Open(blobpack.UserData, args[0])
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
			fmt.Fprintf(out, "Revision:     %d\n", rec.Revision)
			fmt.Fprintf(out, "Files:        %d\n", rec.FileCount)
			if rec.QuotaMB > 0 {
				fmt.Fprintf(out, "Quota:        %d MB\n", rec.QuotaMB)
			}
			fmt.Fprintf(out, "Updated:      %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
			printBaseInfo(out, &rec.EntryBase)
			if len(rec.Files) > 0 {
				paths := make([]string, len(rec.Files))
				for i, f := range rec.Files {
					paths[i] = f.Path
				}
				fmt.Fprintf(out, "Manifest:     %s\n", strings.Join(paths, ", "))
			}
			return nil
		},
	}
	return cmd
}

func newUserCheckpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint <store> <dest>",
		Short: "Copy the store's current on-disk state to a backup file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := blobpack.OpenStore(args[0], storeOpts()...)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Checkpoint(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checkpointed %s to %s\n", args[0], args[1])
			return nil
		},
	}
	return cmd
}
