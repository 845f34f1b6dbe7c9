// Command migrate applies, inspects and reverts the campus schema.
//
//	migrate up              apply pending SQL migrations
//	migrate auto            run GORM AutoMigrate regardless of DB_SCHEMA_MODE
//	migrate status          print the schema plan and pending migrations
//	migrate down <version>  revert one applied migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"campus/internal/config"
	"campus/internal/database"
	"campus/internal/middleware"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":     up,
	"auto":   auto,
	"status": status,
	"down":   down,
}

var errUsage = errors.New("usage: migrate <up|auto|status|down <version>>")

func main() {
	flag.Usage = func() { fmt.Fprintln(flag.CommandLine.Output(), errUsage) }
	flag.Parse()

	if err := run(context.Background(), flag.Args()); err != nil {
		middleware.Logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(cfg, logger.Warn)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return cmd(ctx, db, cfg, args[1:])
}

func up(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}
	middleware.Logger.Info("sql migrations applied")
	return nil
}

func auto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	middleware.Logger.Info("auto-migrate finished")
	return nil
}

func status(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "mode\t%s\n", st.Mode)
	fmt.Fprintf(w, "env\t%s\n", st.Environment)
	fmt.Fprintf(w, "sql\t%t\n", st.WillRunSQL)
	fmt.Fprintf(w, "automigrate\t%t\n", st.WillRunAutoMigrate)
	fmt.Fprintf(w, "applied\t%v\n", st.AppliedVersions)
	for _, m := range st.PendingMigrations {
		fmt.Fprintf(w, "pending\t%s\n", m)
	}
	return w.Flush()
}

func down(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return err
	}
	middleware.Logger.Info("migration reverted", "version", version)
	return nil
}
