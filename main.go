package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/app"
	"github.com/joho/godotenv"
)

const appNamespace = "DINEIN"

func main() {
	// A local .env is optional; real environment variables win.
	_ = godotenv.Load()

	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup with error: %v", app.Name, app.Version, err)
	}

	logLevel := config.GetStringOrDef("log.level", "info")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	a, err := app.New(ctx, config, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot start: %v", app.Name, app.Version, err)
	}

	if err := a.Run(ctx); err != nil {
		a.Close()
		log.Fatalf("%s(%s) stopped with error: %v", app.Name, app.Version, err)
	}

	logger.Infof("%s(%s) stopped", app.Name, app.Version)
}
