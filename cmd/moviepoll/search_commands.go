package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"moviepoll/internal/poll"
	"moviepoll/internal/titlematch"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "search <title...>",
		Short: "Search TMDB; with --year only the accepted match is shown",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			return ctx.withService(cmd, true, func(svc *poll.Service) error {
				res, err := svc.Search(cmd.Context(), title, year)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if res.Candidates == nil {
						res.Candidates = []titlematch.Candidate{}
					}
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				if res.Match != nil {
					fmt.Fprintf(out, "Match: %s score=%s\n", res.Match.Type, formatScore(res.Match.Score))
				}
				if len(res.Candidates) == 0 {
					fmt.Fprintln(out, "No results")
					return nil
				}
				fmt.Fprintln(out, renderCandidates(out, res.Candidates))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Release year")
	return cmd
}

func renderCandidates(out io.Writer, candidates []titlematch.Candidate) string {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.Title,
			formatYear(c.Year()),
			strconv.FormatInt(c.VoteCount, 10),
			formatFloat(c.Popularity),
		})
	}
	return renderTable(out,
		[]column{num("TMDB"), prose("Title"), num("Year"), num("Votes"), num("Popularity")},
		rows,
	)
}

// candidateFile lists offline candidates for `moviepoll match`.
type candidateFile struct {
	Candidates []candidateEntry `yaml:"candidates"`
}

type candidateEntry struct {
	ID            int64  `yaml:"id"`
	Title         string `yaml:"title"`
	OriginalTitle string `yaml:"original_title"`
	ReleaseDate   string `yaml:"release_date"`
}

func loadCandidates(path string) ([]titlematch.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	var file candidateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse candidates: %w", err)
	}
	out := make([]titlematch.Candidate, 0, len(file.Candidates))
	for _, c := range file.Candidates {
		out = append(out, titlematch.Candidate{
			ID:            c.ID,
			Title:         c.Title,
			OriginalTitle: c.OriginalTitle,
			ReleaseDate:   c.ReleaseDate,
		})
	}
	return out, nil
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var year int
	var candidatesPath string

	cmd := &cobra.Command{
		Use:   "match <title...>",
		Short: "Explain how a title matches TMDB results or an offline candidate file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			offline := strings.TrimSpace(candidatesPath) != ""
			return ctx.withService(cmd, !offline, func(svc *poll.Service) error {
				var candidates []titlematch.Candidate
				var err error
				if offline {
					candidates, err = loadCandidates(candidatesPath)
				} else {
					res, searchErr := svc.Search(cmd.Context(), title, 0)
					candidates, err = res.Candidates, searchErr
				}
				if err != nil {
					return err
				}
				if len(candidates) == 0 {
					return errors.New("no candidates to match against")
				}

				result := svc.Match(title, year, candidates)
				info := poll.NewMatchInfo(result)
				if ctx.jsonOutput() {
					return writeJSON(cmd, info)
				}
				out := cmd.OutOrStdout()
				if !result.Found() {
					fmt.Fprintf(out, "No match for %q among %d candidate(s)\n", title, len(candidates))
					return nil
				}
				fmt.Fprintf(out, "%s match: %s (%s) [tmdb %d] score=%s\n",
					result.Type, info.Title, formatYear(info.Year), info.CandidateID, formatScore(info.Score))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Release year")
	cmd.Flags().StringVar(&candidatesPath, "candidates", "", "YAML or JSON file of candidates instead of a live search")
	return cmd
}
