package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/HusainCode/pico-firmware/internal/config"
	"github.com/HusainCode/pico-firmware/internal/db"
	"github.com/HusainCode/pico-firmware/internal/logging"
	"github.com/HusainCode/pico-firmware/internal/migrate"
)

var version = "dev"
var appName = "pico-migrate"

const usage = `usage: %s <command>
  migrate  apply pending migrations to SQLITE_PATH (or SQLITE_DSN)
  status   list migrations and whether they are applied
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadMigrateFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger, closer := logging.New(cfg.Common, version, appName)

	err = run(context.Background(), os.Args[1], cfg, logger)
	_ = closer.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, cfg config.Collector, logger *slog.Logger) error {
	switch cmd {
	case "migrate", "status":
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			logger.Error("db close", "err", err)
		}
	}()

	if cmd == "status" {
		all, err := migrate.Status(ctx, conn)
		if err != nil {
			return err
		}
		for _, m := range all {
			state := "pending"
			if m.Applied {
				state = "applied"
			}
			fmt.Printf("%s_%s\t%s\n", m.Version, m.Name, state)
		}
		return nil
	}

	n, err := migrate.Run(ctx, conn, logger)
	if err != nil {
		return err
	}
	fmt.Printf("migrations applied: %d\n", n)
	return nil
}
