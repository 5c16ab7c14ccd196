// Package main applies or rolls back the PostgreSQL snapshot schema.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/finnkarter/gameosdpas/internal/config"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	source := flag.String("migrations", "migrations", "directory holding the *.sql migrations")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	// The database section is validated regardless of the configured backend.
	v := config.NewViper()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("reading config: %v", err)
	}
	v.Set("storage.backend", config.BackendPostgres)
	cfg, err := config.LoadFromViper(v)
	if err != nil {
		log.Fatalf("parsing config: %v", err)
	}

	m, err := migrate.New("file://"+*source, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	switch {
	case *direction == "up" && *steps > 0:
		err = m.Steps(*steps)
	case *direction == "up":
		err = m.Up()
	case *direction == "down" && *steps > 0:
		err = m.Steps(-*steps)
	case *direction == "down":
		err = m.Down()
	default:
		log.Fatalf("invalid direction %q: must be 'up' or 'down'", *direction)
	}
	noChange := errors.Is(err, migrate.ErrNoChange)
	if err != nil && !noChange {
		log.Fatalf("migration failed: %v", err)
	}

	version, dirty, _ := m.Version()
	elapsed := time.Since(start)
	if noChange {
		fmt.Fprintf(os.Stdout, "no changes (version=%d dirty=%v) [%s]\n", version, dirty, elapsed)
		return
	}
	fmt.Fprintf(os.Stdout, "migrated %s to version=%d dirty=%v [%s]\n", *direction, version, dirty, elapsed)
}
