package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/rootsreach/rootsreach-backend/internal/seed"
	"github.com/rootsreach/rootsreach-backend/internal/users"
	"github.com/rootsreach/rootsreach-backend/pkg/config"
	"github.com/rootsreach/rootsreach-backend/pkg/db"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
	"github.com/rootsreach/rootsreach-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "init", "seed command: init|promote")
	email := flag.String("email", "", "user email (for promote)")
	password := flag.String("password", "", "password used when promote has to create the user")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{"cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg, db.WithSQLite(cfg.FeatureFlags.UseSQLite))
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	requireResource(ctx, logg, "schema", migrate.Ensure(ctx, cfg, logg, dbClient))

	seeder, err := seed.New(users.NewRepository(dbClient.DB()), cfg.Password, logg)
	requireResource(ctx, logg, "seeder", err)

	switch *cmd {
	case "init":
		results, err := seeder.Init(ctx, cfg.Seed)
		for _, res := range results {
			fmt.Printf("%-9s %-12s %s %s\n", res.Action, res.Role, res.Email, res.Password)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed init failed: %v\n", err)
			os.Exit(1)
		}

	case "promote":
		res, err := seeder.Promote(ctx, *email, *password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "promote failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s %s %s\n", res.Action, res.Role, res.Email)

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
