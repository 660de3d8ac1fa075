package main

import (
	"github.com/spf13/cobra"

	"github.com/japaniel/jplevel/pkg/db"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()
			analyses, err := db.ListAnalyses(conn, limit)
			if err != nil {
				return err
			}
			writeHistory(cmd.OutOrStdout(), analyses)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of rows (0 for all)")
	return cmd
}
