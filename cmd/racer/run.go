package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeusync/racer/internal/core/episode"
	"github.com/zeusync/racer/internal/injector"
)

func newRunCommand(configPath *string) *cobra.Command {
	var (
		agents, episodes, maxSteps int
		policy                     string
		seed                       uint64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an arena of local agents and report episode outcomes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(*configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("agents") {
				s.Arena.Agents = agents
			}
			if flags.Changed("episodes") {
				s.Arena.Episodes = episodes
			}
			if flags.Changed("max-steps") {
				s.Arena.MaxSteps = maxSteps
			}
			if flags.Changed("policy") {
				s.Arena.Policy = policy
			}
			if flags.Changed("seed") {
				s.Arena.Seed = seed
			}
			if err := s.Validate(); err != nil {
				return err
			}

			rt, cleanup, err := injector.InitializeRuntime(s)
			if err != nil {
				return err
			}
			defer cleanup()

			factory, err := s.PolicyFactory()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := rt.Arena.Run(ctx, factory)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "course %016x: %d episodes in %s, mean reward %.3f\n",
				rt.Course.Fingerprint(), len(report.Results), report.Elapsed.Round(time.Millisecond), report.MeanReward)
			for _, o := range episode.Outcomes() {
				if n := report.Outcomes[o]; n > 0 {
					fmt.Fprintf(out, "  %-16s %d\n", o, n)
				}
			}
			fmt.Fprintf(out, "contacts: %d checkpoint entries, %d wall contacts\n",
				report.Contacts.CheckpointEntries, report.Contacts.WallContacts)

			if rt.Store != nil {
				sum, err := rt.Store.Summary(context.WithoutCancel(ctx), rt.Course.Fingerprint())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "stored: %d episodes on this course, best reward %.3f\n", sum.Episodes, sum.BestReward)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&agents, "agents", 0, "number of parallel agents")
	cmd.Flags().IntVar(&episodes, "episodes", 0, "episodes per agent")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step cap per episode, 0 for none")
	cmd.Flags().StringVar(&policy, "policy", "", "policy driving the agents: random or heading")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "base seed of the random policy")
	return cmd
}
