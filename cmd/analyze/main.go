// Command analyze runs a gap analysis over a local chapter file without the
// database or the queue, for tuning scorers and weights.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <chapter.html>",
		Short: "Run a gap analysis over a local chapter",
		Long: `Scores an HTML chapter across every dimension with the configured
weights and threshold (same environment as the worker) and prints the
summary with its recommendations.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.path = args[0]
			return runAnalyze(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "chapter title (defaults to the first h1)")
	cmd.Flags().StringSliceVar(&opts.keyConcepts, "key-concepts", nil, "concepts the chapter must cover")
	cmd.Flags().StringSliceVar(&opts.criticalTerms, "critical-terms", nil, "terms the chapter must mention")
	cmd.Flags().StringVar(&opts.updated, "updated", "", "chapter last update as YYYY-MM-DD (defaults to the file mtime)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the full result as JSON")

	return cmd
}
