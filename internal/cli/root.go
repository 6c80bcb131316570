// Package cli implements the advisorctl operator commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/fin-advisor/internal/config"
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "advisorctl",
	Short:        "Operate the financial advisor",
	Long:         "Inspect query classification and the provider chain, migrate the schema and mint API tokens.",
	SilenceUsage: true,
}

// loadConfig is swapped in tests.
var loadConfig = config.Load

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
