package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"moviepoll/internal/appeal"
	"moviepoll/internal/poll"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Rank the poll's movies by appeal",
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID := ctx.pollID()
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				res, err := svc.Results(cmd.Context(), pollID)
				if err != nil {
					return err
				}
				if limit > 0 && len(res.Ranking) > limit {
					res.Ranking = res.Ranking[:limit]
				}
				return printResults(cmd, ctx, res)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the top N movies")
	return cmd
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute and store appeal snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				if all {
					count, err := svc.RefreshAll(cmd.Context())
					fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d poll(s)\n", count)
					return err
				}
				res, err := svc.Refresh(cmd.Context(), ctx.pollID())
				if err != nil {
					return err
				}
				return printResults(cmd, ctx, res)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Refresh every poll")
	return cmd
}

func printResults(cmd *cobra.Command, ctx *commandContext, res poll.Results) error {
	if ctx.jsonOutput() {
		if res.Ranking == nil {
			res.Ranking = []appeal.Ranked{}
		}
		return writeJSON(cmd, res)
	}
	out := cmd.OutOrStdout()
	if len(res.Ranking) == 0 {
		fmt.Fprintf(out, "No votes in poll %s\n", res.PollID)
		return nil
	}
	rows := make([][]string, 0, len(res.Ranking))
	for _, r := range res.Ranking {
		rows = append(rows, []string{
			strconv.Itoa(r.Rank),
			r.Title,
			formatFloat(r.FinalAppeal),
			formatFloat(r.OriginalAppeal),
			fmt.Sprintf("%d/%d", r.SeenCount, r.TotalVoters),
			formatFloat(r.VisibilityModifier),
		})
	}
	fmt.Fprintf(out, "Poll %s: %d voter(s), %d vote(s)\n", res.PollID, res.TotalUniqueVoters, res.TotalVotes)
	fmt.Fprintln(out, renderTable(out,
		[]column{num("#"), prose("Title"), num("Appeal"), num("Vibe"), num("Seen"), num("Modifier")},
		rows,
	))
	return nil
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise votes in the poll",
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID := ctx.pollID()
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				stats, err := svc.Stats(cmd.Context(), pollID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Poll:              %s\n", stats.PollID)
				fmt.Fprintf(out, "Votes:             %d\n", stats.TotalVotes)
				fmt.Fprintf(out, "Unique voters:     %d\n", stats.UniqueVoters)
				fmt.Fprintf(out, "Movies with votes: %d\n", stats.MoviesWithVotes)
				fmt.Fprintf(out, "Seen votes:        %d\n", stats.SeenVotes)
				if !stats.LastVoteAt.IsZero() {
					fmt.Fprintf(out, "Last vote:         %s\n", stats.LastVoteAt.Local().Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
}

func newPollsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "polls",
		Short: "List polls that have votes or snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				polls, err := svc.Polls(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if polls == nil {
						polls = []string{}
					}
					return writeJSON(cmd, polls)
				}
				out := cmd.OutOrStdout()
				if len(polls) == 0 {
					fmt.Fprintln(out, "No polls yet")
					return nil
				}
				for _, p := range polls {
					fmt.Fprintln(out, p)
				}
				return nil
			})
		},
	}
}
