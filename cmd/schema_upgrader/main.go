// Command schema_upgrader brings the ledger database schema up to the
// newest version in the schema repository. Run it before the services
// on every rollout; upgrading an up-to-date database is a no-op.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	configs "github.com/poddle/poddle/pkg/configs/backend"
	kpool "github.com/poddle/poddle/pkg/conn/db/postgres/pool"
	"github.com/poddle/poddle/pkg/conn/db/postgres/schema"
	"github.com/poddle/poddle/pkg/utils/try"
)

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config", os.Getenv("PODDLE_BACKEND_CONFIG"), "path to config file",
	)
	prepository := flag.String(
		"schema-repository", os.Getenv("PODDLE_SCHEMA_REPOSITORY"),
		"path to the schema repository directory",
	)
	flag.Parse()

	conf := try.To(configs.LoadBackendConfig(*pconfig)).OrFatal(logger)

	pool := try.To(kpool.Connect(ctx, conf.Database())).OrFatal(logger)
	defer pool.Close()

	sch := schema.New(pool, *prepository)

	current := try.To(sch.Version(ctx)).OrFatal(logger)
	logger.Printf("current schema version: %d", current)

	if err := sch.Upgrade(ctx); err != nil {
		logger.Fatal(err)
	}

	upgraded := try.To(sch.Version(ctx)).OrFatal(logger)
	logger.Printf("schema is up to date at version %d", upgraded)
}
