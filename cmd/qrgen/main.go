package main

import (
	"context"
	"os"

	"qrgen/internal/cli"
)

func main() {
	if err := cli.NewCLI().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
