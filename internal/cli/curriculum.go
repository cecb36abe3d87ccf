package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-roadmap/internal/learning/catalog"
)

type curriculumSummary struct {
	TrackID             string   `json:"track_id"`
	Name                string   `json:"name"`
	Version             string   `json:"version"`
	Phases              int      `json:"phases"`
	Slots               int      `json:"slots"`
	MalformedThresholds []string `json:"malformed_thresholds,omitempty"`
}

func newCurriculumCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curriculum",
		Short: "Curriculum tools",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [path]",
		Short: "Parse and validate a curriculum file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.curriculumPath
			if len(args) == 1 {
				path = args[0]
			}
			cur, err := catalog.LoadCurriculum(opts.log, path)
			if err != nil {
				return err
			}
			sum := curriculumSummary{
				TrackID:             cur.TrackID,
				Name:                cur.Name,
				Version:             cur.Version,
				Phases:              len(cur.Phases),
				MalformedThresholds: cur.MalformedThresholds(),
			}
			for _, p := range cur.Phases {
				sum.Slots += len(p.Slots)
			}
			out := cmd.OutOrStdout()
			if opts.format == "json" {
				return writeJSON(out, sum)
			}
			fmt.Fprintf(out, "%s (%s v%s): %d phases, %d slots\n", sum.TrackID, sum.Name, sum.Version, sum.Phases, sum.Slots)
			for _, t := range sum.MalformedThresholds {
				fmt.Fprintf(out, "warning: malformed threshold %s\n", t)
			}
			return nil
		},
	})
	return cmd
}
