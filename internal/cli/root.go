// Package cli implements roadmapctl, the operator tool for curricula,
// template catalogs and stored roadmaps.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

type options struct {
	curriculumPath string
	catalogPath    string
	format         string
	log            *logger.Logger
}

// NewRootCmd builds a fresh command tree so tests can run commands in
// isolation.
func NewRootCmd() *cobra.Command {
	opts := &options{log: logger.Nop()}
	root := &cobra.Command{
		Use:           "roadmapctl",
		Short:         "Inspect curricula, template catalogs and learner roadmaps",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("unknown --format %q (text|json)", opts.format)
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				l, err := logger.New("development")
				if err != nil {
					return err
				}
				opts.log = l
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.curriculumPath, "curriculum", "", "curriculum YAML (default: built-in track)")
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "template catalog file or directory (default: built-in)")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "output format: text|json")
	root.PersistentFlags().BoolP("verbose", "v", false, "log to stderr")

	root.AddCommand(newCatalogCmd(opts), newCurriculumCmd(opts), newRoadmapCmd(opts), newTokenCmd(opts))
	return root
}

func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
