package main

import (
	"os"

	"metrics-monitor/internal/cli"
)

func main() {
	os.Exit(int(cli.Run(os.Args[1:])))
}
