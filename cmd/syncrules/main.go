package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jercik/sync-rules-sub001/internal/config"
	"github.com/Jercik/sync-rules-sub001/internal/prompt"
	"github.com/Jercik/sync-rules-sub001/internal/scan"
	"github.com/Jercik/sync-rules-sub001/internal/sync"
	"github.com/Jercik/sync-rules-sub001/internal/version"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

// exitCode carries the summary outcome out of cobra. Conflicts map to 1,
// fatal setup errors to 2.
var exitCode int

var rootCmd = &cobra.Command{
	Use:     "sync-rules",
	Short:   "Keep AI assistant rule files consistent across projects",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd)
	},
	RunE: runSync,
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().BoolP("dry-run", "n", false, "Preview actions without touching the filesystem")
	rootCmd.Flags().BoolP("auto", "y", false, "Resolve everything as use-newest without prompting")
	rootCmd.Flags().StringArray("rule", nil, "Override configured rule patterns (repeatable)")
	rootCmd.Flags().StringArray("exclude", nil, "Additional exclude patterns (repeatable)")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "sync-rules config file")
}

func bindFlags(cmd *cobra.Command) error {
	viper.SetEnvPrefix("SYNC_RULES")
	viper.AutomaticEnv()
	for viperKey, flagName := range map[string]string{
		"config":  "config",
		"dry_run": "dry-run",
		"auto":    "auto",
	} {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			flag = cmd.Root().PersistentFlags().Lookup(flagName)
		}
		if flag != nil {
			if err := viper.BindPFlag(viperKey, flag); err != nil {
				return err
			}
		}
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return err
	}

	rules := cfg.Rules
	if override, _ := cmd.Flags().GetStringArray("rule"); len(override) > 0 {
		rules = override
	}
	excludes := cfg.Excludes
	if extra, _ := cmd.Flags().GetStringArray("exclude"); len(extra) > 0 {
		excludes = append(excludes, extra...)
	}

	projects, err := cfg.DiscoverProjects()
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true
	showHeader(len(projects))

	dryRun := viper.GetBool("dry_run")
	auto := viper.GetBool("auto")

	var prompter prompt.Prompter
	if !dryRun && !auto && isatty.IsTerminal(os.Stdin.Fd()) {
		prompter = prompt.Huh{}
	}

	engine := &sync.Engine{
		Projects:    projects,
		Scanner:     scan.NewScanner(rules, excludes),
		Prompter:    prompter,
		DryRun:      dryRun,
		AutoConfirm: auto,
		LockPath:    config.DefaultLockPath,
	}

	summary, err := engine.Run(cmd.Context())
	if err != nil {
		return err
	}

	printSummary(cmd, summary, dryRun)
	exitCode = summaryExitCode(summary)
	return nil
}

func showHeader(projectCount int) {
	fmt.Printf("%s %s\n", cyan(version.AppName), version.Short())
	fmt.Printf("syncing %d projects\n\n", projectCount)
}

func printSummary(cmd *cobra.Command, s *sync.Summary, dryRun bool) {
	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintln(out, cyan("dry-run: no files were changed"))
	}
	fmt.Fprintf(out, "%s %d updated, %d added, %d deleted, %d skipped\n",
		green("done:"), s.Updates, s.Additions, s.Deletions, s.Skips)
	if s.Conflicts > 0 {
		fmt.Fprintf(out, "%s %d\n", red("conflicts:"), s.Conflicts)
	}
}

// summaryExitCode maps conflicts to a non-zero process exit code.
func summaryExitCode(s *sync.Summary) int {
	if s.Conflicts > 0 {
		return 1
	}
	return 0
}

func main() {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}
