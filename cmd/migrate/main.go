package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"basegraph.app/gapengine/core/config"
	"basegraph.app/gapengine/core/db/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: migrate <up|down [steps]|version|force <version>>")
		return exitFailure
	}

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open embedded migrations: %v\n", err)
		return exitFailure
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(cfg.DB.DSN))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrate instance: %v\n", err)
		return exitFailure
	}
	defer func() { _, _ = m.Close() }()

	if err := runCommand(m, args); err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", args[0], err)
		return exitFailure
	}
	return exitSuccess
}

// migrateURL points the DSN at the pgx/v5 driver, which registers "pgx5".
func migrateURL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx5://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	return dsn
}

func runCommand(m *migrate.Migrate, args []string) error {
	var err error

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if len(args) > 1 {
			if steps, err = strconv.Atoi(args[1]); err != nil || steps <= 0 {
				return fmt.Errorf("invalid steps %q", args[1])
			}
		}
		err = m.Steps(-steps)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied")
			return nil
		}
		if verr != nil {
			return verr
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	case "force":
		if len(args) < 2 {
			return errors.New("force requires a version")
		}
		version, perr := strconv.Atoi(args[1])
		if perr != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return m.Force(version)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No migrations to apply")
		return nil
	}
	if err == nil {
		fmt.Printf("Migration %s completed successfully\n", args[0])
	}
	return err
}
