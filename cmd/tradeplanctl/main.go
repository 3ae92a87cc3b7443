package main

import (
	"os"

	"github.com/dgnsrekt/tradeplan_saver/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
