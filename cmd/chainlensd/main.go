// Package main provides the chainlens CLI - it resolves a raw query
// (height, hash, or address) against a ledger backend and prints the
// normalized record as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chainlens/chainlens/internal/adapter"
	"github.com/chainlens/chainlens/internal/config"
	"github.com/chainlens/chainlens/internal/ledger"
	"github.com/chainlens/chainlens/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		ledgerName  = flag.String("ledger", "bitcoin", "Ledger to query (bitcoin, ethereum, dogecoin)")
		configFile  = flag.String("config", "", "Config file path (YAML)")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showStats   = flag.Bool("stats", false, "Print network stats instead of searching")
		showPrice   = flag.Bool("price", false, "Print the spot price instead of searching")
		activityFor = flag.String("activity", "", "Print recent activity for an address instead of searching")
		timeout     = flag.Duration("timeout", time.Minute, "Overall deadline for the command")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("chainlensd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	id, err := ledger.Parse(*ledgerName)
	if err != nil {
		log.Fatal("Unknown ledger", "ledger", *ledgerName)
	}

	registry := adapter.NewRegistry(cfg, log)
	a, err := registry.Get(id)
	if err != nil {
		log.Fatal("Failed to create adapter", "ledger", id, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch {
	case *showStats:
		printJSON(a.NetworkStats(ctx))

	case *showPrice:
		price, ok := a.Price(ctx)
		if !ok {
			log.Fatal("Price unavailable", "ledger", id)
		}
		fmt.Printf("%s: $%.2f\n", id.Symbol(), price)

	case *activityFor != "":
		printJSON(a.AddressActivity(ctx, *activityFor))

	default:
		if flag.NArg() != 1 {
			log.Fatal("Usage: chainlensd [flags] <height|hash|address|latest>")
		}
		rec, err := a.Search(ctx, flag.Arg(0))
		if err != nil {
			log.Fatal("Search failed", "query", flag.Arg(0), "error", err)
		}
		printJSON(rec)
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logging.GetDefault().Fatal("Failed to encode result", "error", err)
	}
	fmt.Println(string(out))
}
