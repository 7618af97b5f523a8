package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-svsk/call-summarizer/orchestrator"
	"github.com/vijay-svsk/call-summarizer/report"
)

func (a *app) analyzeCmd() *cobra.Command {
	var (
		customer string
		format   string
		outDir   string
	)
	cmd := &cobra.Command{
		Use:   "analyze <audio-file>",
		Short: "Analyze one call recording",
		Long: `Run the full pipeline over a wav, mp3 or flac recording, write the
record to <out>/session_<timestamp>_<id>/report.<format> and print it.

With --customer and database.enabled the record is also stored in the
call history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = a.conf.Paths.Outputs
			}

			p, reg, err := a.pipeline()
			if err != nil {
				return err
			}
			defer reg.Close()

			rec, err := p.RunFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			sid, path, err := orchestrator.WriteReport(outDir, rec, f)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			a.log.WithField("session", sid).WithField("path", path).Info("report written")

			if customer != "" {
				db, err := a.openStore()
				if err != nil {
					return err
				}
				if db == nil {
					a.log.Warn("database disabled; --customer ignored")
				} else {
					defer db.Close()
					id, err := db.Store(cmd.Context(), customer, rec)
					if err != nil {
						return err
					}
					a.log.WithField("call_id", id).WithField("customer", customer).Info("call stored")
				}
			}
			return report.Encode(cmd.OutOrStdout(), rec, f)
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "store the record under this customer")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVar(&outDir, "out", "", "outputs directory (default: paths.outputs)")
	return cmd
}
