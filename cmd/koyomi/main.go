package main

import (
	"os"

	"github.com/koyomi-dev/koyomi/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
