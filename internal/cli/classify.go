package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/fin-advisor/internal/advisor"
)

var classifyAt string

func init() {
	cmd := &cobra.Command{
		Use:   "classify <query>",
		Short: "Show how a query is classified",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runClassify,
	}
	cmd.Flags().StringVar(&classifyAt, "at", "", "Reference date YYYY-MM-DD (default: today)")

	RootCmd.AddCommand(cmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	now := time.Now()
	if classifyAt != "" {
		t, err := time.Parse("2006-01-02", classifyAt)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		now = t
	}
	return printJSON(cmd.OutOrStdout(), advisor.ClassifyAt(strings.Join(args, " "), now))
}
