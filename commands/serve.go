package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vijay-svsk/call-summarizer/server"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP upload API",
		Long: `Serve POST /process_call, GET /health_check and
GET /customers/:name/calls until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.conf.Server.Addr = addr
			}
			p, reg, err := a.pipeline()
			if err != nil {
				return err
			}
			defer reg.Close()

			db, err := a.openStore()
			if err != nil {
				return err
			}
			var repo server.Repository
			if db != nil {
				defer db.Close()
				repo = db
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.New(a.conf, p, repo, a.log).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
