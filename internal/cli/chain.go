package cli

import (
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/fin-advisor/internal/ai"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "chain",
		Short: "Print the provider fallback chain resolved from configuration",
		Args:  cobra.NoArgs,
		RunE:  runChain,
	})
}

type chainEntry struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	HasToken bool   `json:"has_token"`
	Timeout  string `json:"timeout"`
}

func runChain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	primary, fallbacks, err := cfg.ProviderChain()
	if err != nil {
		return err
	}
	specs := append([]ai.ProviderSpec{primary}, fallbacks...)
	out := make([]chainEntry, 0, len(specs))
	for _, s := range specs {
		out = append(out, chainEntry{
			Provider: s.Name,
			Model:    s.Model,
			BaseURL:  s.BaseURL,
			HasToken: s.AuthToken != "",
			Timeout:  s.Timeout.String(),
		})
	}
	return printJSON(cmd.OutOrStdout(), out)
}
