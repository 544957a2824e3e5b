// Command recorder fills the path library offline by simulating drops
// headlessly and keeping the paths that land in under-sampled slots.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/database"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/pathstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	rowsFlag := flag.String("rows", "", "comma separated row counts to record (default: all supported)")
	perSlot := flag.Int("per-slot", cfg.SamplesPerSlot, "paths to keep per slot")
	attempts := flag.Int("attempts", cfg.MaxRecordAttempts, "maximum simulated drops per row count")
	workers := flag.Int("workers", cfg.RecorderWorkers, "parallel simulation workers")
	storeKind := flag.String("store", cfg.PathStore, "path store: postgres or file")
	file := flag.String("file", cfg.PathLibraryFile, "path library file for -store=file")
	tuningPath := flag.String("tuning", cfg.TuningFile, "optional YAML physics tuning file")
	seed := flag.Int64("seed", time.Now().UnixNano(), "simulation seed")
	reset := flag.Bool("reset", false, "discard existing paths before recording")
	flag.Parse()

	rows, err := parseRows(*rowsFlag)
	if err != nil {
		log.Fatalf("Invalid -rows: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store pathstore.Store
	switch *storeKind {
	case "file":
		store = pathstore.NewFileStore(*file)
	case "postgres":
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		store = pathstore.NewPostgresStore(db)
	default:
		log.Fatalf("Unknown store %q", *storeKind)
	}

	var tuning *game.TuningFile
	if *tuningPath != "" {
		if tuning, err = game.LoadTuningFile(*tuningPath); err != nil {
			log.Fatalf("Failed to load tuning file: %v", err)
		}
	}

	library := game.NewPathLibrary(*perSlot)
	if !*reset {
		if _, err := pathstore.LoadInto(ctx, store, library); err != nil {
			log.Fatalf("Failed to load existing paths: %v", err)
		}
	}

	recorder := game.NewPathRecorder(game.RecorderOptions{
		Workers:      *workers,
		YieldEvery:   cfg.RecorderYieldEvery,
		Tuning:       tuning,
		Seed:         *seed,
		Into:         library,
		Persist:      store.Save,
		PersistEvery: cfg.PersistEvery,
	})

	for _, r := range rows {
		if *reset {
			library.Replace(r, nil)
		}
		start := time.Now()
		_, stats, err := recorder.RecordSamples(ctx, r, *perSlot, *attempts)
		if err != nil && ctx.Err() == nil {
			log.Fatalf("Recording rows=%d failed: %v", r, err)
		}
		log.Printf("rows=%d accepted=%d attempts=%d failed=%d complete=%v in %s",
			r, stats.Accepted, stats.Attempts, stats.Failed, stats.Complete, time.Since(start).Round(time.Millisecond))
		for slot, n := range countsInOrder(library, r) {
			log.Printf("  slot %2d: %d", slot, n)
		}
		if ctx.Err() != nil {
			log.Println("Interrupted; partial library saved")
			return
		}
	}
}

func parseRows(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return game.SupportedRows(), nil
	}
	var rows []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if _, err := game.BuildBoard(n); err != nil {
			return nil, err
		}
		rows = append(rows, n)
	}
	return rows, nil
}

func countsInOrder(library *game.PathLibrary, rows int) []int {
	counts := library.Counts(rows)
	out := make([]int, rows+1)
	for slot, n := range counts {
		if slot >= 0 && slot < len(out) {
			out[slot] = n
		}
	}
	return out
}
