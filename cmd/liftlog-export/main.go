package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/export"
	"github.com/meltforce/liftlog/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	out := flag.String("out", "liftlog-snapshot.db", "path of the SQLite snapshot to write")
	userID := flag.Int("user", 1, "user id to export")
	fromStr := flag.String("from", "", "start date YYYY-MM-DD (defaults to one year ago)")
	toStr := flag.String("to", "", "end date YYYY-MM-DD (defaults to today)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftlog-export", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	to := time.Now().UTC()
	if *toStr != "" {
		var err error
		to, err = time.Parse("2006-01-02", *toStr)
		if err != nil {
			log.Error("invalid -to date", "value", *toStr, "error", err)
			os.Exit(1)
		}
	}
	from := to.AddDate(-1, 0, 0)
	if *fromStr != "" {
		var err error
		from, err = time.Parse("2006-01-02", *fromStr)
		if err != nil {
			log.Error("invalid -from date", "value", *fromStr, "error", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := storage.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	stats, err := export.Snapshot(ctx, db, *userID, from, to, *out)
	if err != nil {
		log.Error("snapshot failed", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("=== Snapshot Summary ===")
	fmt.Printf("  Output:     %s\n", *out)
	fmt.Printf("  Range:      %s .. %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("  Plans:      %d\n", stats.Plans)
	fmt.Printf("  Scheduled:  %d\n", stats.Scheduled)
	fmt.Printf("  Sessions:   %d\n", stats.Sessions)
	fmt.Printf("  Sets:       %d\n", stats.Sets)
	fmt.Println()
	log.Info("snapshot complete")
}
