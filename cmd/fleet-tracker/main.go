package main

import (
	"context"
	"flag"
	"log"
	"time"

	lib "github.com/theoremus-urban-solutions/fleet-tracker"
	"github.com/theoremus-urban-solutions/fleet-tracker/fleet"
	"github.com/theoremus-urban-solutions/fleet-tracker/ingest"
	"github.com/theoremus-urban-solutions/fleet-tracker/storage"
)

func main() {
	ensureSchema := flag.Bool("ensure-schema", false, "create missing tables at startup")
	flag.Parse()

	lib.InitLogging()
	if err := lib.LoadAppConfig(); err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := storage.Open(lib.Config.Database.DSN,
		lib.Config.Database.MaxOpenConns, lib.Config.Database.MaxIdleConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Ping(ctx); err != nil {
		cancel()
		log.Fatalf("database connection failed: %v", err)
	}
	if *ensureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("schema: %v", err)
		}
	}
	if n, err := store.VehicleCount(ctx); err == nil {
		log.Printf("database connection established, %d vehicles on record", n)
	} else {
		cancel()
		log.Fatalf("vehicles table check failed: %v", err)
	}
	cancel()

	tracker := fleet.NewTracker(store, lib.NewPromMetrics())
	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = tracker.Start(startCtx)
	startCancel()
	if err != nil {
		log.Fatalf("registry warm-up: %v", err)
	}
	log.Printf("registry loaded with %d vehicles", len(tracker.List()))

	feedCtx, feedCancel := context.WithCancel(context.Background())
	defer feedCancel()
	if url := lib.Config.GTFSRT.VehiclePositionsURL; url != "" {
		feeder := ingest.NewFeeder(tracker, url,
			time.Duration(lib.Config.GTFSRT.ReadIntervalMS)*time.Millisecond,
			time.Duration(lib.Config.GTFSRT.TimeoutMS)*time.Millisecond)
		go feeder.Run(feedCtx)
		log.Printf("gtfsrt feeder polling %s", url)
	}

	srv := lib.NewServer(tracker)
	srv.Start()
	srv.HandleGracefulShutdown()
}
