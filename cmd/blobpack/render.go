package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cheggaaa/pb"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/blobpack/blobpack"
)

func renderTable(out io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}

func newProgress(total int) *pb.ProgressBar {
	bar := pb.New(total)
	bar.ShowTimeLeft = false
	bar.SetMaxWidth(80)
	return bar.Start()
}

func humanSize(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func printBuildSummary(cmd *cobra.Command, path string, entries int, payloadBytes uint64) {
	fmt.Fprintf(cmd.OutOrStdout(), "built %s: %d entries, %s payload\n",
		path, entries, humanSize(payloadBytes))
}

func printContainerSummary(cmd *cobra.Command, path string, entries int, size int64) {
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %d entries, %s total\n",
		path, entries, humanSize(uint64(size)))
}

func printBaseInfo(out io.Writer, b *blobpack.EntryBase) {
	if b.Version != "" {
		fmt.Fprintf(out, "Version:      %s\n", b.Version)
	}
	if b.Description != "" {
		fmt.Fprintf(out, "Description:  %s\n", b.Description)
	}
	ratio := 0.0
	if b.Size > 0 {
		ratio = float64(b.CompressedSize) / float64(b.Size)
	}
	fmt.Fprintf(out, "Size:         %s (%s compressed, ratio %.2f)\n",
		humanSize(b.Size), humanSize(b.CompressedSize), ratio)
	fmt.Fprintf(out, "Checksum:     sha256:%s\n", b.Checksum)
	fmt.Fprintf(out, "Created:      %s\n", b.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if len(b.Dependencies) > 0 {
		fmt.Fprintf(out, "Dependencies: %s\n", strings.Join(b.Dependencies, ", "))
	}
	fmt.Fprintf(out, "Files:        %d\n", len(b.Files))
}

// reportExtract prints per-key results and returns an error if any key
// failed.
func reportExtract(cmd *cobra.Command, results map[string]error) error {
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	failed := 0
	for _, key := range keys {
		if err := results[key]; err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", key, err)
		} else {
			fmt.Fprintf(out, "ok   %s\n", key)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d entries failed", failed, len(results))
	}
	fmt.Fprintf(out, "extracted %d entries\n", len(results))
	return nil
}

// reportVerify prints failed entries and returns an error unless every
// entry verified clean. The results map holds one outcome per key, nil
// for success.
func reportVerify(cmd *cobra.Command, total int, results map[string]error) error {
	var failed []string
	for key, err := range results {
		if err != nil {
			failed = append(failed, key)
		}
	}

	out := cmd.OutOrStdout()
	if len(failed) == 0 {
		fmt.Fprintf(out, "ok: %d entries verified\n", total)
		return nil
	}

	sort.Strings(failed)
	for _, key := range failed {
		fmt.Fprintf(out, "FAIL %s: %v\n", key, results[key])
	}
	return fmt.Errorf("%d of %d entries failed verification", len(failed), total)
}

// renderDepTree prints key's dependency tree. Cycles are cut at the
// repeated key, missing dependencies are marked.
func renderDepTree[R blobpack.Record](out io.Writer, r *blobpack.Reader[R], key string) {
	fmt.Fprintln(out, key)
	printDepBranch(out, r, key, "", map[string]bool{key: true})
}

func printDepBranch[R blobpack.Record](out io.Writer, r *blobpack.Reader[R], key, prefix string, path map[string]bool) {
	rec, ok := r.Record(key)
	if !ok {
		return
	}
	deps := dependenciesOf(rec)
	for i, dep := range deps {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(deps)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}
		switch {
		case path[dep]:
			fmt.Fprintf(out, "%s%s%s (cycle)\n", prefix, connector, dep)
		default:
			if _, ok := r.Record(dep); !ok {
				fmt.Fprintf(out, "%s%s%s (missing)\n", prefix, connector, dep)
				continue
			}
			fmt.Fprintf(out, "%s%s%s\n", prefix, connector, dep)
			path[dep] = true
			printDepBranch(out, r, dep, childPrefix, path)
			delete(path, dep)
		}
	}
}

func dependenciesOf(rec blobpack.Record) []string {
	switch v := any(rec).(type) {
	case *blobpack.ApplicationEntry:
		return v.Dependencies
	case *blobpack.BinaryEntry:
		return v.Dependencies
	case *blobpack.UserRecord:
		return v.Dependencies
	default:
		return nil
	}
}

// exitCode maps sentinel errors to distinct process exit codes for
// scripting. Unused codes are reserved.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, blobpack.ErrNotFound):
		return 2
	case errors.Is(err, blobpack.ErrIntegrity):
		return 3
	case errors.Is(err, blobpack.ErrLocked):
		return 4
	default:
		return 1
	}
}
