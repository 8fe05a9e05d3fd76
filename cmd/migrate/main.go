package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

type command struct {
	usage string
	run   func(m *migrate.Migrate, args []string) error
}

var commands = map[string]command{
	"up": {"apply all pending migrations", func(m *migrate.Migrate, _ []string) error {
		return report(m.Up(), "all migrations applied")
	}},
	"down": {"roll back the last migration", func(m *migrate.Migrate, _ []string) error {
		return report(m.Steps(-1), "rolled back one migration")
	}},
	"goto": {"migrate to version N", func(m *migrate.Migrate, args []string) error {
		v, err := versionArg(args)
		if err != nil {
			return err
		}
		return report(m.Migrate(uint(v)), fmt.Sprintf("at version %d", v))
	}},
	"force": {"mark version N as applied and clear the dirty flag", func(m *migrate.Migrate, args []string) error {
		v, err := versionArg(args)
		if err != nil {
			return err
		}
		return report(m.Force(int(v)), fmt.Sprintf("forced version %d", v))
	}},
	"status": {"show the current migration version", func(m *migrate.Migrate, _ []string) error {
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Println("No migrations applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		if dirty {
			log.Printf("Version %d (dirty, fix the schema and run force %d)", v, v)
			return nil
		}
		log.Printf("Version %d", v)
		return nil
	}},
}

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		usage()
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
	}

	user := env.GetEnv("DB_USER", "bookforge")
	host := env.GetEnv("DB_HOST", "db")
	port := env.GetEnv("DB_PORT", "3306")
	name := env.GetEnv("DB_NAME", "bookforge_db")
	databaseURL := fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		user, env.GetEnv("DB_PASSWORD", "bookforge"), host, port, name)
	log.Printf("Migrating %s@%s:%s/%s", user, host, port, name)

	m, err := migrate.New("file://"+env.GetEnv("MIGRATIONS_PATH", "migrations"), databaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	runErr := cmd.run(m, os.Args[2:])
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		log.Printf("Failed to close migration resources: %v, %v", srcErr, dbErr)
	}
	if runErr != nil {
		log.Fatalf("%s failed: %v", os.Args[1], runErr)
	}
}

func report(err error, done string) error {
	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("Nothing to do, database is up to date")
		return nil
	}
	if err != nil {
		return err
	}
	log.Println(done)
	return nil
}

func versionArg(args []string) (uint64, error) {
	if len(args) == 0 {
		return 0, errors.New("missing version number")
	}
	v, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	return v, nil
}

func usage() {
	fmt.Println("Usage: migrate <command> [N]")
	for _, name := range []string{"up", "down", "goto", "force", "status"} {
		fmt.Printf("  %-7s %s\n", name, commands[name].usage)
	}
	os.Exit(1)
}
