package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/cmd/utils/internal/commands"
	"github.com/joho/godotenv"
)

const (
	appName    = "dinein-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	// Same namespace as the server so both target the same store.
	config, err := apt.LoadConfig("DINEIN", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logger := apt.NewLogger(config.GetStringOrDef("log.level", "info"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]

	switch command {
	case "seed-demo":
		if err := commands.SeedDemo(ctx, config, logger); err != nil {
			log.Fatalf("Demo seeding failed: %v", err)
		}
		logger.Info("Demo seeding completed")

	case "reset-store":
		if err := commands.ResetStore(ctx, config, logger); err != nil {
			log.Fatalf("Store reset failed: %v", err)
		}
		logger.Info("Store reset completed")

	case "export-history":
		if err := commands.ExportHistory(ctx, config, logger, os.Stdout); err != nil {
			log.Fatalf("History export failed: %v", err)
		}

	case "tail-events":
		if err := commands.TailEvents(ctx, config, logger, os.Stdout); err != nil {
			log.Fatalf("Tailing events failed: %v", err)
		}

	case "watch":
		if err := commands.Watch(ctx, config, logger, os.Stdout); err != nil {
			log.Fatalf("Watch failed: %v", err)
		}

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - dinein operator commands

Usage:
  %s <command> [--key=value ...]

Commands:
  seed-demo       Apply the demo tables, menu and users (--force=true re-runs every seed)
  reset-store     Wipe the configured store (mongo drops the database - USE WITH CAUTION)
  export-history  Print archived sessions as JSON (--limit=N)
  tail-events     Print change events from NATS (--replay=true reads the JetStream stream: retained, then live)
  watch           Print the gRPC change feed (--server=host:port --topics=kitchen,tables --snapshot=true)
  version         Print version information
  help            Show this help message

Configuration is shared with the server: DINEIN_STORE_DRIVER, DINEIN_DB_MONGO_URL,
DINEIN_DB_REDIS_ADDR, DINEIN_NATS_URL, DINEIN_LOG_LEVEL or the matching --flags.

Examples:
  %s seed-demo --store.driver=redis
  %s export-history --limit=20 > history.json
  %s watch --topics=kitchen --snapshot=true

`, appName, appName, appName, appName, appName)
}
