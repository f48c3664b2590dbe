package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/unclebandit/outreach-backend/internal/config"
)

var sourceURL = "file://migrations"

func newMigrate() (*migrate.Migrate, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return migrate.New(sourceURL, cfg.DB.DSN())
}

func finish(m *migrate.Migrate, err error) error {
	srcErr, dbErr := m.Close()
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no change")
		err = nil
	}
	if err != nil {
		return err
	}
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

func main() {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	root.PersistentFlags().StringVar(&sourceURL, "source", sourceURL, "migration source URL")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(*cobra.Command, []string) error {
			m, err := newMigrate()
			if err != nil {
				return err
			}
			return finish(m, m.Up())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back the given number of migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer")
				}
				steps = n
			}
			m, err := newMigrate()
			if err != nil {
				return err
			}
			return finish(m, m.Steps(-steps))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(*cobra.Command, []string) error {
			m, err := newMigrate()
			if err != nil {
				return err
			}
			v, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Println("no migrations applied")
				return finish(m, nil)
			}
			if err == nil {
				fmt.Printf("version %d (dirty=%v)\n", v, dirty)
			}
			return finish(m, err)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
