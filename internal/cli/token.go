package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-roadmap/internal/http/middleware"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/envutil"
)

func newTokenCmd(_ *options) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <learner-id>",
		Short: "Issue a learner bearer token signed with JWT_SECRET_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := envutil.String("JWT_SECRET_KEY", "")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET_KEY is not set")
			}
			tok, err := middleware.SignLearnerToken([]byte(secret), args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
