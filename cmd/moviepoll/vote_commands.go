package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"moviepoll/internal/appeal"
	"moviepoll/internal/poll"
	"moviepoll/internal/store"
)

func newVoteCommand(ctx *commandContext) *cobra.Command {
	voteCmd := &cobra.Command{
		Use:     "vote",
		Aliases: []string{"votes"},
		Short:   "Record and inspect votes",
	}
	voteCmd.AddCommand(newVoteAddCommand(ctx))
	voteCmd.AddCommand(newVoteListCommand(ctx))
	voteCmd.AddCommand(newVoteRemoveCommand(ctx))
	voteCmd.AddCommand(newVoteImportCommand(ctx))
	voteCmd.AddCommand(newVoteSimilarCommand(ctx))
	voteCmd.AddCommand(newVoteCollisionsCommand(ctx))
	return voteCmd
}

func newVoteAddCommand(ctx *commandContext) *cobra.Command {
	var seen bool

	cmd := &cobra.Command{
		Use:   "add <movie-id> <user> <vibe>",
		Short: "Record a vote (vibe 1-6); a user's later vote on the same movie replaces the earlier one",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			movieID, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			vibe, err := strconv.Atoi(strings.TrimSpace(args[2]))
			if err != nil {
				return fmt.Errorf("invalid vibe %q", args[2])
			}
			pollID := ctx.pollID()
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				vote, err := svc.SubmitVote(cmd.Context(), pollID, appeal.Vote{
					MovieID:  movieID,
					UserName: args[1],
					Vibe:     vibe,
					Seen:     seen,
				})
				if err != nil {
					return movieError(movieID, err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, vote)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s: movie #%d vibe %d seen=%s (poll %s)\n",
					vote.UserName, vote.MovieID, vote.Vibe, yesNo(vote.Seen), pollID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&seen, "seen", false, "The voter has already seen the movie")
	return cmd
}

func newVoteListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List votes in the poll",
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID := ctx.pollID()
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				votes, err := svc.Votes(cmd.Context(), pollID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if votes == nil {
						votes = []appeal.Vote{}
					}
					return writeJSON(cmd, votes)
				}
				out := cmd.OutOrStdout()
				if len(votes) == 0 {
					fmt.Fprintf(out, "No votes in poll %s\n", pollID)
					return nil
				}
				titles, err := svc.Store().Titles(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(votes))
				for _, v := range votes {
					rows = append(rows, []string{
						strconv.FormatInt(v.MovieID, 10),
						titles[v.MovieID],
						v.UserName,
						strconv.Itoa(v.Vibe),
						yesNo(v.Seen),
						v.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]column{num("Movie"), prose("Title"), word("User"), num("Vibe"), word("Seen"), word("Updated")},
					rows,
				))
				return nil
			})
		},
	}
}

func newVoteRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <movie-id> <user>",
		Aliases: []string{"rm"},
		Short:   "Remove a user's vote on a movie",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			movieID, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			pollID := ctx.pollID()
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				if err := svc.RemoveVote(cmd.Context(), pollID, movieID, args[1]); err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("no vote by %s on movie #%d in poll %s", args[1], movieID, pollID)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed vote by %s on movie #%d\n", args[1], movieID)
				return nil
			})
		},
	}
}

func newVoteSimilarCommand(ctx *commandContext) *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "similar <name>",
		Short: "List voters whose names resemble <name>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID := ctx.pollID()
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				matches, err := svc.SimilarVoters(cmd.Context(), pollID, args[0], threshold)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if matches == nil {
						matches = []poll.SimilarVoter{}
					}
					return writeJSON(cmd, matches)
				}
				out := cmd.OutOrStdout()
				if len(matches) == 0 {
					fmt.Fprintf(out, "No voters in poll %s resemble %q\n", pollID, args[0])
					return nil
				}
				rows := make([][]string, 0, len(matches))
				for _, m := range matches {
					rows = append(rows, []string{m.Name, strconv.Itoa(m.Votes), formatFloat(m.Similarity)})
				}
				fmt.Fprintln(out, renderTable(out,
					[]column{word("User"), num("Votes"), num("Similarity")},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "min", poll.DefaultNameSimilarity, "Minimum similarity between 0 and 1")
	return cmd
}

func newVoteCollisionsCommand(ctx *commandContext) *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "collisions",
		Short: "List voter pairs that are probably the same person",
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID := ctx.pollID()
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				pairs, err := svc.VoterCollisions(cmd.Context(), pollID, threshold)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if pairs == nil {
						pairs = []poll.VoterPair{}
					}
					return writeJSON(cmd, pairs)
				}
				out := cmd.OutOrStdout()
				if len(pairs) == 0 {
					fmt.Fprintf(out, "No similar voter names in poll %s\n", pollID)
					return nil
				}
				rows := make([][]string, 0, len(pairs))
				for _, p := range pairs {
					rows = append(rows, []string{
						p.A.Name, strconv.Itoa(p.A.Votes),
						p.B.Name, strconv.Itoa(p.B.Votes),
						formatFloat(p.Similarity),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]column{word("User"), num("Votes"), word("Similar to"), num("Votes"), num("Similarity")},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "min", poll.DefaultNameSimilarity, "Minimum similarity between 0 and 1")
	return cmd
}

// voteFile is the import format. JSON files parse too since JSON is YAML.
type voteFile struct {
	Votes []voteEntry `yaml:"votes"`
}

type voteEntry struct {
	MovieID int64  `yaml:"movie_id"`
	User    string `yaml:"user"`
	Vibe    int    `yaml:"vibe"`
	Seen    bool   `yaml:"seen"`
}

func parseVoteFile(data []byte) ([]appeal.Vote, error) {
	var file voteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse vote file: %w", err)
	}
	votes := make([]appeal.Vote, 0, len(file.Votes))
	for _, v := range file.Votes {
		votes = append(votes, appeal.Vote{MovieID: v.MovieID, UserName: v.User, Vibe: v.Vibe, Seen: v.Seen})
	}
	return votes, nil
}

func newVoteImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Record a batch of votes from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read vote file: %w", err)
			}
			votes, err := parseVoteFile(data)
			if err != nil {
				return err
			}
			if len(votes) == 0 {
				return errors.New("vote file contains no votes")
			}
			pollID := ctx.pollID()
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				res, err := svc.SubmitBatch(cmd.Context(), pollID, votes)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Recorded %d vote(s) in poll %s, %d rejected\n", res.Submitted, pollID, res.Failed)
				for _, e := range res.Errors {
					fmt.Fprintf(out, "  #%d %s on movie %d: %s\n", e.Index+1, e.UserName, e.MovieID, e.Error)
				}
				return nil
			})
		},
	}
}
