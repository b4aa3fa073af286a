package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/echo/internal/server"
	"github.com/dmitrijs2005/echo/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n\n", err)
		_ = config.WriteEnvUsage(os.Stderr)
		os.Exit(2)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}

}
