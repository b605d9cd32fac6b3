package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/credeval/internal/client/cli"
	"github.com/dmitrijs2005/credeval/internal/client/config"
	"github.com/dmitrijs2005/credeval/internal/flagx"
)

func main() {
	cfg := config.LoadConfig()
	app := cli.NewApp(cfg)

	args := flagx.StripArgs(os.Args[1:], config.GlobalFlags)
	if err := app.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
