// Command vmscout-cli runs feed syncs and matches against the local catalog
// without starting the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/lcalzada-xor/vmscout/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/vmscout/internal/app"
	"github.com/lcalzada-xor/vmscout/internal/config"
	"github.com/lcalzada-xor/vmscout/internal/core/services/matching"
)

const usage = `usage: vmscout-cli <command> [flags]

commands:
  sync-nvd [days]     sync the NVD CVE feed for the last N days (default 30)
  sync-kev            sync the CISA known-exploited catalog
  match [asset_id]    match one asset, or every asset
  stats               print catalog counts
  tables              validate and summarize the matching tables
  hash-key <key>      print the bcrypt hash to use as VMSCOUT_API_KEY_HASH

flags are shared with vmscout; run 'vmscout-cli <command> -h' to list them.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfg, err := config.LoadArgs(fs, os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cmd, cfg, fs.Args(), logger); err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, cfg *config.Config, args []string, logger *slog.Logger) error {
	switch cmd {
	case "tables":
		return printTables(cfg.TablesPath)
	case "hash-key":
		if len(args) != 1 || args[0] == "" {
			return fmt.Errorf("hash-key takes exactly one key argument")
		}
		hash, err := middleware.HashAPIKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	switch cmd {
	case "sync-nvd":
		days := 30
		if len(args) > 0 {
			if days, err = strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("days must be an integer: %w", err)
			}
		}
		result, err := application.Feeds.SyncVulnerabilities(ctx, days)
		if err != nil {
			return err
		}
		return printJSON(result)
	case "sync-kev":
		result, err := application.Feeds.SyncKnownExploited(ctx)
		if err != nil {
			return err
		}
		return printJSON(result)
	case "match":
		if len(args) > 0 {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("asset_id must be a positive integer, got %q", args[0])
			}
			result, err := application.Engine.MatchAsset(ctx, uint(id))
			if err != nil {
				return err
			}
			return printJSON(result)
		}
		result, err := application.Engine.MatchAll(ctx)
		if err != nil {
			return err
		}
		return printJSON(result)
	case "stats":
		stats, err := application.Inventory.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(stats)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printTables(path string) error {
	tables, err := matching.LoadTables(path)
	if err != nil {
		return err
	}
	aliases, products := tables.Len()
	return printJSON(map[string]int{"aliases": aliases, "products": products})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
