package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jercik/sync-rules-sub001/internal/config"
	"github.com/Jercik/sync-rules-sub001/internal/scan"
	"github.com/Jercik/sync-rules-sub001/internal/sync"
	"github.com/Jercik/sync-rules-sub001/internal/utils"
)

func init() {
	rootCmd.AddCommand(newMergeCmd())
}

// newMergeCmd is the legacy two-directory mode: merge rule files from a
// source directory into a target directory, resolving content conflicts
// with an external three-way merge tool and an interactive editor.
func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge SOURCE_DIR TARGET_DIR",
		Short: "Merge rule files from one directory into another",
		Args:  cobra.ExactArgs(2),
		RunE:  runMerge,
	}
	cmd.Flags().String("merge-tool", "", "Three-way merge tool (default git merge-file)")
	cmd.Flags().String("editor", "", "Interactive editor for conflicts (default $EDITOR, then vi)")
	cmd.Flags().StringArray("rule", nil, "Override default rule patterns (repeatable)")
	cmd.Flags().StringArray("exclude", nil, "Additional exclude patterns (repeatable)")
	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	sourceDir, err := utils.ResolvePath(args[0])
	if err != nil {
		return err
	}
	targetDir, err := utils.ResolvePath(args[1])
	if err != nil {
		return err
	}

	mergeTool, _ := cmd.Flags().GetString("merge-tool")
	editor, _ := cmd.Flags().GetString("editor")

	// tool availability is checked once up front; a missing tool aborts
	// the whole batch before anything is touched
	tools, err := sync.DetectTools(mergeTool, editor)
	if err != nil {
		return err
	}

	rules := config.DefaultRules
	if override, _ := cmd.Flags().GetStringArray("rule"); len(override) > 0 {
		rules = override
	}
	excludes := config.DefaultExcludes
	if extra, _ := cmd.Flags().GetStringArray("exclude"); len(extra) > 0 {
		excludes = append(excludes, extra...)
	}

	cmd.SilenceUsage = true

	scanner := scan.NewScanner(rules, excludes)
	source, err := scanner.Scan(cmd.Context(), sourceDir)
	if err != nil {
		return err
	}
	target, err := scanner.Scan(cmd.Context(), targetDir)
	if err != nil {
		return err
	}

	resolver := sync.NewMergeResolver(tools)
	summary, err := resolver.ResolvePair(cmd.Context(), source, target, targetDir)
	if summary != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d merged, %d added, %d skipped\n",
			green("done:"), summary.Updates, summary.Additions, summary.Skips)
		if summary.Conflicts > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", red("conflicts:"), summary.Conflicts)
		}
		exitCode = summaryExitCode(summary)
	}
	return err
}
