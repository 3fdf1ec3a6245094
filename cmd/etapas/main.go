package main

import (
	"context"
	"fmt"
	"os"

	"etapas-cli/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, "etapas:", err)
		}
		os.Exit(1)
	}
}
