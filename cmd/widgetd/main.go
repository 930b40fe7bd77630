package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	app := fx.New(
		AppOptions,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, app.StartTimeout())
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "musicwidget: %v\n", err)
		return 1
	}

	// Wait for an interrupt or for a component to request shutdown
	exitCode := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "musicwidget: %v\n", err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	return exitCode
}
