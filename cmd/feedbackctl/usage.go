package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/scribemark/feedback/cost"
	"github.com/scribemark/feedback/ledger"
)

func newUsageCmd(a *app) *cobra.Command {
	var (
		filter ledger.UsageFilter
		since  time.Duration
		totals bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recorded token usage and cost",
		Example: `  # Last 20 calls for one student submission
  feedbackctl usage --subject-type StudentWork --subject-id sw-42 --limit 20

  # Spend per model over the last week
  feedbackctl usage --totals --since 168h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			if totals {
				rows, err := store.Totals(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), rows)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "PROVIDER\tMODEL\tREQUESTS\tINPUT\tOUTPUT\tCOST")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n", r.Provider, r.Model, r.Requests, r.InputTokens, r.OutputTokens, cost.FormatMicroUnits(r.CostMicroUnits))
				}
				fmt.Fprintf(w, "\t\t\t\t\t%s\n", cost.FormatMicroUnits(lo.SumBy(rows, func(r ledger.Total) int64 { return r.CostMicroUnits })))
				return w.Flush()
			}

			records, err := store.ListUsage(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSUBJECT\tUSER\tREQUEST\tMODEL\tTOKENS\tCOST")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s/%s\t%s\t%s\t%s\t%d\t%s\n",
					r.CreatedAt.Local().Format(time.DateTime), r.Trackable.Type, r.Trackable.ID, r.UserID,
					r.RequestType, r.Model, r.TotalTokens, cost.FormatMicroUnits(r.CostMicroUnits))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.TrackableType, "subject-type", "", "Filter by subject type (Assignment, StudentWork)")
	cmd.Flags().StringVar(&filter.TrackableID, "subject-id", "", "Filter by subject ID")
	cmd.Flags().StringVar(&filter.UserID, "user", "", "Filter by user ID")
	cmd.Flags().Uint64Var(&filter.Limit, "limit", 50, "Maximum number of records (0 for all)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only include usage newer than this duration")
	cmd.Flags().BoolVar(&totals, "totals", false, "Aggregate per provider and model")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
