package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tilesync/cmd/tilesync/commands"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New()
	cli.SetArgs(args)
	if err := cli.Execute(ctx); err != nil {
		// %+v prints the zerr metadata.
		_, _ = fmt.Fprintf(os.Stderr, "fatal: %+v\n", err)
		return 1
	}
	return 0
}
