package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/configuration"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "opsboard",
		Short:         "Field operations dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newJobTypesCmd())
	cmd.AddCommand(newInventoryCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newAPIClient(conf *configuration.Configuration, token string) (*apiclient.Client, error) {
	if token == "" {
		token = conf.API.Token
	}
	return apiclient.New(apiclient.Options{
		BaseURL: conf.API.BaseURL,
		Token:   token,
		Timeout: conf.API.Timeout,
		Logger:  conf.Logger(),
	})
}
