package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/tidewave/conductor/cmd/conductor/container"
	"github.com/tidewave/conductor/cmd/conductor/routes"
	"github.com/tidewave/conductor/common/bootstrap"
	"github.com/tidewave/conductor/common/repository"
	"github.com/tidewave/conductor/common/server"
)

func main() {
	ctx := context.Background()

	components, err := bootstrap.Setup(ctx, "conductor",
		bootstrap.WithDBInitHook(repository.InitSchema),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap conductor: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	ct, err := container.New(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build service container: %v\n", err)
		os.Exit(1)
	}

	if err := ct.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start background workers: %v\n", err)
		os.Exit(1)
	}
	defer ct.Stop()

	e := echo.New()
	e.HideBanner = true
	routes.Register(e, ct)

	srv := server.New("conductor", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
