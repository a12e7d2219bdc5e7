package main

import (
	"os"

	"finsight/internal/cli"
	"finsight/internal/commands"
)

func main() {
	cli.LoadEnvFile()
	if err := commands.New().Execute(); err != nil {
		os.Exit(1)
	}
}
