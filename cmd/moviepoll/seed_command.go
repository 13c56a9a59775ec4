package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moviepoll/internal/poll"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Add movies and votes from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := poll.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			pollID := ctx.pollID()
			return ctx.withService(cmd, true, func(svc *poll.Service) error {
				report, err := svc.Seed(cmd.Context(), file, pollID)
				if err != nil {
					return err
				}
				if refresh {
					if _, err := svc.Refresh(cmd.Context(), report.Poll); err != nil {
						return fmt.Errorf("refresh after seed: %w", err)
					}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(report.Entries))
				for _, e := range report.Entries {
					detail := string(e.Match.Type)
					if e.Error != "" {
						detail = e.Error
					}
					rows = append(rows, []string{e.Title, formatYear(e.Year), e.Status, fmt.Sprint(e.Votes), detail})
				}
				fmt.Fprintln(out, renderTable(out,
					[]column{prose("Title"), num("Year"), word("Status"), num("Votes"), prose("Detail")},
					rows,
				))
				fmt.Fprintf(out, "Poll %s: %d added, %d existing, %d failed\n",
					report.Poll, report.Added, report.Existing, report.Failed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Refresh appeal snapshots after seeding")
	return cmd
}
