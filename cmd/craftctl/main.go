package main

import (
	"fmt"
	"os"

	"craftworks.ai/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "craftctl:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
