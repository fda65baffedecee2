package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanctus-app/sanctus/cmd/sanctusctl/cli"
)

func newJobsCmd() *cobra.Command {
	var redisAddr string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Enqueue or inspect background jobs",
	}
	cmd.PersistentFlags().StringVar(&redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address")

	trigger := &cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a job immediately",
		Args:      cobra.ExactArgs(1),
		ValidArgs: cli.SupportedJobs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI := cli.NewJobsCLI(redisAddr)
			defer jobsCLI.Close()
			info, err := jobsCLI.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", info.Type, info.ID)
			return err
		},
	}
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show default queue counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI := cli.NewJobsCLI(redisAddr)
			defer jobsCLI.Close()
			s, err := jobsCLI.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry)
			return err
		},
	}
	cmd.AddCommand(trigger, stats)
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
