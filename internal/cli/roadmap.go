package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-roadmap/internal/data/db"
	"github.com/yungbote/neurobridge-roadmap/internal/data/repos"
	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
)

type roadmapSummary struct {
	LearnerID string    `json:"learner_id"`
	TrackID   string    `json:"track_id"`
	Status    string    `json:"status"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type inspectReport struct {
	Roadmap       *roadmap.Roadmap            `json:"roadmap"`
	Interventions []*types.MarketIntervention `json:"interventions,omitempty"`
}

func newRoadmapCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roadmap",
		Short: "Stored roadmap tools (uses DB_DRIVER / POSTGRES_* / SQLITE_PATH)",
	}
	var interventions int
	inspect := &cobra.Command{
		Use:   "inspect <learner-id>",
		Short: "Print a learner's roadmap and recent market interventions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := db.NewPostgresService(opts.log, db.ConfigFromEnv())
			if err != nil {
				return err
			}
			defer store.Close()

			dbc := dbctx.New(cmd.Context())
			rec, err := repos.NewRoadmapRepo(store.DB(), opts.log).GetByLearnerID(dbc, args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no roadmap for learner %s", args[0])
			}
			r, err := rec.Roadmap()
			if err != nil {
				return err
			}
			rep := inspectReport{Roadmap: r}
			if interventions > 0 {
				rows, err := repos.NewMarketInterventionRepo(store.DB(), opts.log).ListByLearnerID(dbc, args[0], interventions)
				if err != nil {
					return err
				}
				rep.Interventions = rows
			}
			if opts.format == "json" {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			printRoadmap(cmd, r)
			for _, iv := range rep.Interventions {
				fmt.Fprintf(cmd.OutOrStdout(), "intervention %s -> %s (pressure %.2f, score %.2f)\n",
					iv.TargetInvariant, iv.ProbeID, iv.Pressure, iv.Score)
			}
			return nil
		},
	}
	inspect.Flags().IntVar(&interventions, "interventions", 10, "number of recent market interventions to include")

	var (
		statuses []string
		limit    int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored roadmaps by status, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for i, st := range statuses {
				st = strings.ToLower(strings.TrimSpace(st))
				switch roadmap.Status(st) {
				case roadmap.StatusActive, roadmap.StatusLocked, roadmap.StatusCompleted:
				default:
					return fmt.Errorf("unknown status %q (active|locked|completed)", st)
				}
				statuses[i] = st
			}
			store, err := db.NewPostgresService(opts.log, db.ConfigFromEnv())
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := repos.NewRoadmapRepo(store.DB(), opts.log).ListByStatus(dbctx.New(cmd.Context()), statuses, limit)
			if err != nil {
				return err
			}
			out := make([]roadmapSummary, 0, len(rows))
			for _, r := range rows {
				out = append(out, roadmapSummary{LearnerID: r.LearnerID, TrackID: r.TrackID, Status: r.Status, Version: r.Version, UpdatedAt: r.UpdatedAt})
			}
			if opts.format == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			for _, r := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-16s %-10s v%d %s\n", r.LearnerID, r.TrackID, r.Status, r.Version, r.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	list.Flags().StringSliceVar(&statuses, "status", []string{string(roadmap.StatusActive), string(roadmap.StatusLocked)}, "statuses to include (active|locked|completed)")
	list.Flags().IntVar(&limit, "limit", 50, "maximum rows (0 for all)")

	cmd.AddCommand(inspect, list)
	return cmd
}

func printRoadmap(cmd *cobra.Command, r *roadmap.Roadmap) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "roadmap %s learner=%s track=%s status=%s version=%d\n", r.ID, r.LearnerID, r.TrackID, r.Status, r.Version)
	if r.LockedReason != "" {
		fmt.Fprintf(out, "locked: %s\n", r.LockedReason)
	}
	for _, p := range r.Phases {
		fmt.Fprintf(out, "  %s [%s]\n", p.PhaseID, p.Status)
		for _, s := range p.Slots {
			fmt.Fprintf(out, "    %-12s %-22s %s/%s attempts=%d\n", s.SlotID, s.Status, s.Skill, s.Difficulty, s.RemediationAttempts)
		}
	}
}
