package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/vellumdb/vellum/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve REST endpoints for the configured collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, st, log, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close(ctx)

		srv := api.NewServer(st, cfg.Collections, log)
		log.Infow("listening", "addr", cfg.HTTPAddr, "collections", cfg.Collections)
		return http.ListenAndServe(cfg.HTTPAddr, srv.Router())
	},
}
