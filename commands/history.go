package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vijay-svsk/call-summarizer/report"
)

func (a *app) historyCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "history <customer>",
		Short: "List stored analyses for a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("database is disabled (database.enabled=false)")
			}
			defer db.Close()

			recs, err := db.FetchByCustomer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format != "" {
				f, err := report.ParseFormat(format)
				if err != nil {
					return err
				}
				for _, r := range recs {
					if err := report.Encode(out, r, f); err != nil {
						return err
					}
				}
				return nil
			}

			if len(recs) == 0 {
				fmt.Fprintf(out, "no calls for %s\n", args[0])
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tID\tAUDIO\tSCORE\tTHEME")
			for _, r := range recs {
				score := "-"
				if cs, ok := r.Scores.Interaction.Get(); ok {
					score = fmt.Sprintf("%.2f", cs.Value)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.CreatedAt.Format("2006-01-02 15:04"), r.ID, r.AudioName, score, r.Details.Theme.Or("-"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "print full records as json or yaml instead of a table")
	return cmd
}
