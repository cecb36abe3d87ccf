package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-roadmap/internal/learning/catalog"
)

func newCatalogCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Template catalog tools",
	}
	var strict bool
	check := &cobra.Command{
		Use:   "check",
		Short: "Report curriculum slots without templates or remediation variants",
		Long: `Cross-check the template catalog against the curriculum.

Examples:
  roadmapctl catalog check
  roadmapctl catalog check --catalog ./tasks --strict -f json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, err := catalog.LoadCurriculum(opts.log, opts.curriculumPath)
			if err != nil {
				return err
			}
			cat, err := catalog.LoadCatalog(opts.log, opts.catalogPath)
			if err != nil {
				return err
			}
			rep := cat.CheckRemediationGaps(cur)
			out := cmd.OutOrStdout()
			if opts.format == "json" {
				if err := writeJSON(out, rep); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "templates:        %d\n", cat.Len())
				fmt.Fprintf(out, "slots with tasks: %d/%d\n", rep.SlotsWithTasks, rep.TotalSlots)
				printList(cmd, "missing tasks", rep.MissingTasks)
				printList(cmd, "no remediation", rep.NoRemediation)
				printList(cmd, "unknown slots", rep.UnknownSlots)
			}
			if strict && !rep.Clean() {
				return fmt.Errorf("catalog has gaps")
			}
			return nil
		},
	}
	check.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any gap is found")
	cmd.AddCommand(check)
	return cmd
}

func printList(cmd *cobra.Command, label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", label, strings.Join(sorted, ", "))
}
