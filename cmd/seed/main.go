// Command seed loads the built-in catalog, generates demo data and runs the
// orphan sweeper once.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"campus/internal/bootstrap"
	"campus/internal/config"
	"campus/internal/repository"
	"campus/internal/seed"
	"campus/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/seed [-users N] [-resources N] [-clean] <catalog|demo|sweep>")
}

func run() error {
	numUsers := flag.Int("users", 12, "Number of demo users to create")
	numResources := flag.Int("resources", 2, "Number of demo resources per variant")
	shouldClean := flag.Bool("clean", false, "Remove demo users and their data before seeding")
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "catalog":
		report, err := seed.Catalog(ctx, rt.DB)
		if err != nil {
			return fmt.Errorf("catalog seeding failed: %w", err)
		}
		log.Printf("catalog seeded: %d subjects, %d variants", report.Subjects, report.Variants)
	case "demo":
		if *shouldClean {
			if err := seed.ClearDemo(ctx, rt.DB); err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			log.Println("demo data cleared")
		}
		report, err := seed.Demo(ctx, rt.DB, rt.Blobs, seed.DemoOptions{
			Users:               *numUsers,
			ResourcesPerVariant: *numResources,
		})
		if err != nil {
			return fmt.Errorf("demo seeding failed: %w", err)
		}
		log.Printf("demo seeded: %d users, %d admins, %d subscriptions, %d resources",
			report.Users, report.Admins, report.Subscriptions, report.Resources)
		log.Printf("all demo users have the password: %s", seed.DemoPassword)
	case "sweep":
		sweeper := service.NewOrphanSweeper(repository.NewResourceRepository(rt.DB), rt.Blobs, service.SweeperConfig{
			Schedule:    cfg.SweepSchedule,
			StageMaxAge: cfg.SweepStageMaxAge(),
		})
		report, err := sweeper.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		log.Printf("sweep finished: %+v", report)
	default:
		return usage()
	}

	return nil
}
