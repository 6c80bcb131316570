package main

import (
	"os"

	"github.com/suPer8Hu/fin-advisor/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
