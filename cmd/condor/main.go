package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"condor-trader/internal/cli"
)

var version = "0.1.0"

func main() {
	// A local .env can supply ZERODHA_* credentials during development.
	_ = godotenv.Load()

	rootCmd := cli.NewRootCmd(version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
