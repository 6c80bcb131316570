package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/fin-advisor/internal/auth"
)

var (
	tokenUser uint64
	tokenTTL  time.Duration
)

func init() {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user id",
		Args:  cobra.NoArgs,
		RunE:  runToken,
	}
	cmd.Flags().Uint64Var(&tokenUser, "user", 0, "User id to put in the token")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenUser == 0 {
		return fmt.Errorf("--user must be positive")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tok, err := auth.SignJWT(tokenUser, cfg.JWTSecret, tokenTTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
	return err
}
