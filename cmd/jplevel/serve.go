package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/jplevel/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := a.loadAnalyzer(cmd.Context())
			if err != nil {
				return err
			}
			srv := server.New(analyzer)
			srv.Origins = a.v.GetStringSlice("server.origins")
			srv.Logger = a.logger
			if save {
				conn, err := a.openDB()
				if err != nil {
					return err
				}
				defer conn.Close()
				srv.DB = conn
			}

			addr := a.v.GetString("server.addr")
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().String("addr", ":8000", "address to listen on")
	cmd.Flags().BoolVar(&save, "save", false, "store every request in the history database")
	a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
