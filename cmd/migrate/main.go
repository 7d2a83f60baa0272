package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/wishlist-backend/pkg/config"
	"github.com/angelmondragon/wishlist-backend/pkg/db"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
	"github.com/angelmondragon/wishlist-backend/pkg/migrate"
)

// invocation is what every command sees after flag parsing.
type invocation struct {
	dir     string
	name    string
	version string
	out     io.Writer
	sqlDB   *sql.DB
}

type command struct {
	needsDB bool
	run     func(ctx context.Context, in invocation) error
}

var commands = map[string]command{
	"up":     {needsDB: true, run: gooseCommand("up")},
	"down":   {needsDB: true, run: gooseCommand("down")},
	"status": {needsDB: true, run: gooseCommand("status")},
	"version": {needsDB: true, run: func(ctx context.Context, in invocation) error {
		if in.version == "" {
			return errors.New("missing -version")
		}
		return migrate.MigrateToVersion(ctx, in.sqlDB, in.dir, in.version)
	}},
	"create": {run: func(_ context.Context, in invocation) error {
		if in.name == "" {
			return errors.New("missing -name")
		}
		dir := in.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, in.name)
		if err != nil {
			return err
		}
		fmt.Fprintln(in.out, "created migration:", path)
		return nil
	}},
	"validate": {run: func(_ context.Context, in invocation) error {
		var err error
		if in.dir != "" {
			err = migrate.ValidateDir(in.dir)
		} else {
			err = migrate.ValidateFS(migrate.Migrations())
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(in.out, "migration validation passed")
		return nil
	}},
}

func gooseCommand(name string) func(context.Context, invocation) error {
	return func(ctx context.Context, in invocation) error {
		return migrate.Run(ctx, in.sqlDB, in.dir, name)
	}
}

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(out)
	cmdName := fs.String("cmd", "up", "one of: "+strings.Join(commandNames(), "|"))
	in := invocation{out: out}
	fs.StringVar(&in.dir, "dir", "", "migrations directory; empty uses the migrations built into the binary")
	fs.StringVar(&in.name, "name", "", "migration name for -cmd=create")
	fs.StringVar(&in.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd, ok := commands[*cmdName]
	if !ok {
		return fmt.Errorf("unknown -cmd %q", *cmdName)
	}
	if !cmd.needsDB {
		return cmd.run(ctx, in)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.ForService("migrate", cfg.App)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmdName, "dir": in.dir})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		return err
	}
	defer client.Close()

	if in.sqlDB, err = client.DB().DB(); err != nil {
		return err
	}
	logg.Info(ctx, "running migrations")
	if err := cmd.run(ctx, in); err != nil {
		logg.Error(ctx, "migration failed", err)
		return err
	}
	return nil
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
