package main

import (
	"context"
	"os"

	"github.com/BuzzLyutic/task-cli/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Run(context.Background(), version, os.Args[1:], os.Stdout, os.Stderr))
}
