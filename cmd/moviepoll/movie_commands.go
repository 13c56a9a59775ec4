package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moviepoll/internal/poll"
	"moviepoll/internal/store"
)

func newMovieCommand(ctx *commandContext) *cobra.Command {
	movieCmd := &cobra.Command{
		Use:     "movie",
		Aliases: []string{"movies"},
		Short:   "Manage the movie list",
	}
	movieCmd.AddCommand(newMovieAddCommand(ctx))
	movieCmd.AddCommand(newMovieListCommand(ctx))
	movieCmd.AddCommand(newMovieShowCommand(ctx))
	movieCmd.AddCommand(newMovieUpdateCommand(ctx))
	movieCmd.AddCommand(newMovieDeleteCommand(ctx))
	movieCmd.AddCommand(newMovieDuplicatesCommand(ctx))
	return movieCmd
}

func newMovieAddCommand(ctx *commandContext) *cobra.Command {
	var year int
	var tmdbID int64
	var manual bool

	cmd := &cobra.Command{
		Use:   "add [title...]",
		Short: "Add a movie by title (matched against TMDB) or TMDB id",
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" && tmdbID <= 0 {
				return errors.New("a title or --tmdb-id is required")
			}

			if manual {
				return ctx.withService(cmd, false, func(svc *poll.Service) error {
					movie, err := svc.AddManualMovie(cmd.Context(), title, year)
					if err != nil {
						return err
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, movie)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s (manual)\n", movie.ID, movieLabel(movie))
					return nil
				})
			}

			return ctx.withService(cmd, true, func(svc *poll.Service) error {
				res, err := svc.AddMovie(cmd.Context(), poll.AddRequest{Title: title, Year: year, TMDBID: tmdbID})
				if err != nil {
					return describeAddError(cmd, err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s [tmdb %d] match=%s score=%s\n",
					res.Movie.ID, movieLabel(res.Movie), res.Movie.TMDBID, res.Match.Type, formatScore(res.Match.Score))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Release year used to disambiguate the match")
	cmd.Flags().Int64Var(&tmdbID, "tmdb-id", 0, "Add by TMDB id and skip matching")
	cmd.Flags().BoolVar(&manual, "manual", false, "Store the title without consulting TMDB")
	return cmd
}

func describeAddError(cmd *cobra.Command, err error) error {
	var noMatch *poll.NoMatchError
	var dup *poll.DuplicateMovieError
	out := cmd.ErrOrStderr()
	switch {
	case errors.As(err, &noMatch):
		if noMatch.Match.CandidateID > 0 {
			fmt.Fprintf(out, "Closest candidate: %s (%d) [tmdb %d] score=%s\n",
				noMatch.Match.Title, noMatch.Match.Year, noMatch.Match.CandidateID, formatScore(noMatch.Match.Score))
		}
		fmt.Fprintln(out, "Retry with --year, --tmdb-id, or --manual.")
	case errors.As(err, &dup):
		if dup.Existing != nil {
			fmt.Fprintf(out, "Already listed as #%d %s\n", dup.Existing.ID, movieLabel(dup.Existing))
		}
	}
	return err
}

func newMovieListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List movies with their stored appeal for the poll",
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID := ctx.pollID()
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				movies, err := svc.ListMovies(cmd.Context(), pollID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if movies == nil {
						movies = []store.MovieListing{}
					}
					return writeJSON(cmd, movies)
				}
				out := cmd.OutOrStdout()
				if len(movies) == 0 {
					fmt.Fprintln(out, "No movies yet")
					return nil
				}
				rows := make([][]string, 0, len(movies))
				for _, m := range movies {
					appeal, voters := "-", "-"
					if m.Appeal != nil {
						appeal = formatFloat(m.Appeal.FinalAppeal)
						voters = strconv.Itoa(m.Appeal.TotalVoters)
					}
					rows = append(rows, []string{
						strconv.FormatInt(m.ID, 10),
						m.Title,
						formatYear(m.Year),
						formatTMDB(m.TMDBID),
						appeal,
						voters,
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]column{num("ID"), prose("Title"), num("Year"), num("TMDB"), num("Appeal"), num("Voters")},
					rows,
				))
				return nil
			})
		},
	}
}

func newMovieShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				movie, err := svc.GetMovie(cmd.Context(), id)
				if err != nil {
					return movieError(id, err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, movie)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "#%d %s\n", movie.ID, movieLabel(movie))
				if movie.OriginalTitle != "" && movie.OriginalTitle != movie.Title {
					fmt.Fprintf(out, "  Original title: %s\n", movie.OriginalTitle)
				}
				if movie.TMDBID > 0 {
					fmt.Fprintf(out, "  TMDB: %d\n", movie.TMDBID)
				}
				if movie.Runtime > 0 {
					fmt.Fprintf(out, "  Runtime: %d min\n", movie.Runtime)
				}
				if movie.MatchType != "" {
					fmt.Fprintf(out, "  Match: %s (score %s)\n", movie.MatchType, formatFloat(movie.MatchScore))
				}
				if movie.Overview != "" {
					fmt.Fprintf(out, "  %s\n", movie.Overview)
				}
				return nil
			})
		},
	}
}

func newMovieUpdateCommand(ctx *commandContext) *cobra.Command {
	var title, overview, poster string
	var year int

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a movie's title, year, overview, or poster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			var update store.MovieUpdate
			if cmd.Flags().Changed("title") {
				update.Title = &title
			}
			if cmd.Flags().Changed("year") {
				update.Year = &year
			}
			if cmd.Flags().Changed("overview") {
				update.Overview = &overview
			}
			if cmd.Flags().Changed("poster") {
				update.PosterPath = &poster
			}
			if update.Empty() {
				return errors.New("nothing to update; pass --title, --year, --overview, or --poster")
			}
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				movie, err := svc.UpdateMovie(cmd.Context(), id, update)
				if err != nil {
					return movieError(id, err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, movie)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated #%d %s\n", movie.ID, movieLabel(movie))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().IntVar(&year, "year", 0, "New release year")
	cmd.Flags().StringVar(&overview, "overview", "", "New overview")
	cmd.Flags().StringVar(&poster, "poster", "", "New TMDB poster path")
	return cmd
}

func newMovieDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a movie and all of its votes",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				if err := svc.DeleteMovie(cmd.Context(), id); err != nil {
					return movieError(id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted movie #%d\n", id)
				return nil
			})
		},
	}
}

func newMovieDuplicatesCommand(ctx *commandContext) *cobra.Command {
	var cleanup bool
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find movies stored twice under the same title and year",
		Long: "List movies whose titles match once leading and trailing articles are\n" +
			"dropped and whose years agree. With --cleanup each group is merged into\n" +
			"its catalog-matched (or oldest) entry and votes move to the kept movie.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, false, func(svc *poll.Service) error {
				if cleanup {
					res, err := svc.CleanupDuplicates(cmd.Context())
					if err != nil {
						return err
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, res)
					}
					out := cmd.OutOrStdout()
					if res.Groups == 0 {
						fmt.Fprintln(out, "No duplicate movies")
						return nil
					}
					fmt.Fprintf(out, "Merged %d group(s): removed %d movie(s), moved %d vote(s)\n",
						res.Groups, len(res.Removed), res.VotesMoved)
					return nil
				}

				groups, err := svc.FindDuplicateMovies(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if groups == nil {
						groups = []poll.DuplicateGroup{}
					}
					return writeJSON(cmd, groups)
				}
				out := cmd.OutOrStdout()
				if len(groups) == 0 {
					fmt.Fprintln(out, "No duplicate movies")
					return nil
				}
				var rows [][]string
				for _, g := range groups {
					for _, m := range g.Movies {
						keep := ""
						if m.ID == g.Keep {
							keep = "keep"
						}
						rows = append(rows, []string{
							g.Key,
							strconv.FormatInt(m.ID, 10),
							m.Title,
							formatTMDB(m.TMDBID),
							keep,
						})
					}
				}
				fmt.Fprintln(out, renderTable(out,
					[]column{word("Group"), num("ID"), prose("Title"), num("TMDB"), word("Action")},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Merge each group into its kept movie")
	return cmd
}

func parseMovieID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id %q", raw)
	}
	return id, nil
}

func movieError(id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("movie #%d not found", id)
	}
	return err
}

func movieLabel(m *store.Movie) string {
	if m == nil {
		return ""
	}
	if m.Year > 0 {
		return fmt.Sprintf("%s (%d)", m.Title, m.Year)
	}
	return m.Title
}

func formatYear(year int) string {
	if year <= 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func formatTMDB(id int64) string {
	if id <= 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatScore(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return formatFloat(*score)
}
