package main

import (
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/opsboard/modules/inventory/services"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/configuration"
)

type exportOutput struct {
	Command    string `json:"command"`
	File       string `json:"file"`
	Rows       int    `json:"rows"`
	DurationMS int64  `json:"duration_ms"`
}

func newInventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inventory tools",
	}
	cmd.AddCommand(newInventoryExportCmd())
	return cmd
}

func newInventoryExportCmd() *cobra.Command {
	var (
		out      string
		token    string
		category string
		search   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the inventory list to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			defer conf.Unload()
			api, err := newAPIClient(conf, token)
			if err != nil {
				return err
			}
			inventory := services.NewInventoryService(api)
			if out == "" {
				out = inventory.FileName()
			}
			query := url.Values{}
			if category != "" {
				query.Set("category", category)
			}
			if search != "" {
				query.Set("search", search)
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			ctx := composables.WithLogger(cmd.Context(), conf.Logger().WithField("command", "inventory export"))
			start := time.Now()
			rows, err := inventory.Export(ctx, f, query)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(out)
				return err
			}
			return writeJSON(exportOutput{
				Command:    "inventory export",
				File:       out,
				Rows:       rows,
				DurationMS: time.Since(start).Milliseconds(),
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file (default inventory-<date>.xlsx)")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token (default API_TOKEN)")
	cmd.Flags().StringVar(&category, "category", "", "Only export this category")
	cmd.Flags().StringVar(&search, "search", "", "Remote search filter")
	return cmd
}
