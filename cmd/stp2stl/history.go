package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stp2stl/internal/manifest"
)

var (
	historyLimit int
	historyPath  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent conversions from the manifest",
	Long:  "List recorded conversions, newest first. Filter with --path to follow a single input file.",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of records to show")
	historyCmd.Flags().StringVar(&historyPath, "path", "", "Only records whose input path contains this text")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, err := cfg.ManifestPath()
	if err != nil {
		return err
	}

	store := manifest.NewStore(path)
	defer store.Close()
	if err := store.Init(cmd.Context()); err != nil {
		return fmt.Errorf("failed to open manifest %s: %w", path, err)
	}

	entries, err := store.Recent(cmd.Context(), historyPath, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	st := newStyles(out)

	if len(entries) == 0 {
		fmt.Fprintln(out, st.dim("no conversions recorded"))
		return nil
	}

	for _, entry := range entries {
		stamp := st.dim(entry.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		switch entry.Status {
		case manifest.StatusOK:
			duration := time.Duration(entry.DurationMS) * time.Millisecond
			fmt.Fprintf(out, "  %s  %s %s -> %s %s\n",
				stamp, historyStatus(st, entry.Status), entry.InputPath, entry.OutputPath,
				st.dim(fmt.Sprintf("(%d facets, %s, %s)", entry.Facets, entry.Mesher, duration)))
		case manifest.StatusError:
			fmt.Fprintf(out, "  %s  %s %s: %s\n",
				stamp, historyStatus(st, entry.Status), entry.InputPath, entry.Error)
		default:
			fmt.Fprintf(out, "  %s  %s %s\n",
				stamp, historyStatus(st, entry.Status), entry.InputPath)
		}
	}
	return nil
}

func historyStatus(st styles, status string) string {
	label := fmt.Sprintf("%-8s", status)
	if !st.enabled {
		return label
	}
	switch status {
	case manifest.StatusOK:
		return st.Green.Render(label)
	case manifest.StatusError:
		return st.Red.Render(label)
	default:
		return st.Yellow.Render(label)
	}
}
