package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/coursegraph-backend/internal/data/catalogfile"
	"github.com/yungbote/coursegraph-backend/internal/data/graph"
	"github.com/yungbote/coursegraph-backend/internal/platform/envutil"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/platform/neo4jdb"
)

func main() {
	var path string
	var dryRun bool
	var timeout time.Duration
	flag.StringVar(&path, "file", envutil.String("CATALOG_FILE", ""), "catalog YAML file to write into Neo4j")
	flag.BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall seed timeout")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if path == "" {
		log.Error("No catalog file given (use -file or CATALOG_FILE)")
		os.Exit(2)
	}
	f, err := catalogfile.Load(path)
	if err != nil {
		log.Error("Invalid catalog file", "path", path, "error", err)
		os.Exit(1)
	}
	log.Info("Catalog file loaded", "path", path, "users", len(f.Users), "courses", len(f.Courses), "enrolments", len(f.Enrolments))
	if dryRun {
		return
	}

	client, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Error("Failed to connect to Neo4j", "error", err)
		os.Exit(1)
	}
	if client == nil {
		log.Error("NEO4J_URI is not set")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	defer client.Close(context.Background())

	if err := graph.SeedCatalog(ctx, client, log, f); err != nil {
		log.Error("Seed failed", "error", err)
		cancel()
		os.Exit(1)
	}
	log.Info("Seed complete")
}
