package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scribemark/feedback/llm"
)

func newModelsCmd(a *app) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List catalog models, prices and configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			models := a.catalog.All()
			if provider != "" {
				models = a.catalog.ForProvider(provider)
			}
			registry := llm.NewProviderRegistry(a.cfg.ProviderConfig(), a.catalog)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tPROVIDER\tINPUT/M\tOUTPUT/M\tDEFAULT\tCONFIGURED")
			for _, m := range models {
				def := ""
				if m.Default {
					def = "yes"
				}
				configured := "no"
				if registry.IsProviderConfigured(m.Provider) {
					configured = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%s\t%s\n", m.ID, m.Provider, m.InputCostPerMillion, m.OutputCostPerMillion, def, configured)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nConfigured providers: %s\n\n", strings.Join(registry.ConfiguredProviders(), ", "))
			for _, uc := range llm.UseCases() {
				route, err := registry.Resolve(uc)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", uc, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s/%s\n", uc, route.Key.Provider, route.Key.Model)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Only list models for this provider")
	return cmd
}
