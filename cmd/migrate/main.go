package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const defaultConfigName = ".migrate"

// collectFiles раскрывает glob-шаблоны из source и сортирует по имени файла.
func collectFiles(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	files := make([]string, 0)
	for _, pattern := range patterns {
		f, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrap(err, "get file glob")
		}
		for _, name := range f {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			files = append(files, name)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return filepath.Base(files[i]) < filepath.Base(files[j])
	})
	return files, nil
}

func ensureTable(ctx context.Context, conn *pgx.Conn, table string) error {
	_, err := conn.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, pgx.Identifier{table}.Sanitize()))
	return errors.Wrap(err, "create migrations table")
}

func applied(ctx context.Context, conn *pgx.Conn, table, name string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE name = $1)", pgx.Identifier{table}.Sanitize()),
		name,
	).Scan(&exists)
	return exists, errors.Wrap(err, "check migration")
}

func apply(ctx context.Context, conn *pgx.Conn, table, file string) error {
	body, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrap(err, "read migration")
	}
	name := filepath.Base(file)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, string(body)); err != nil {
		return errors.Wrapf(err, "exec %s", name)
	}
	if _, err := tx.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (name) VALUES ($1)", pgx.Identifier{table}.Sanitize()), name,
	); err != nil {
		return errors.Wrap(err, "record migration")
	}
	return errors.Wrap(tx.Commit(ctx), "commit")
}

func main() {
	viper.SetConfigName(defaultConfigName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetDefault("table", "schema_migrations")
	viper.SetDefault("timeout", "1m")
	_ = viper.BindEnv("dsn", "DATABASE_DSN")
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	dsn := viper.GetString("dsn")
	if dsn == "" {
		panic("has no dsn in config and DATABASE_DSN is empty")
	}
	sources := viper.GetStringSlice("source")
	if len(sources) == 0 {
		panic("has no source in config")
	}
	table := viper.GetString("table")

	files, err := collectFiles(sources)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("timeout"))
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		panic(errors.Wrap(err, "connect"))
	}
	defer func() { _ = conn.Close(context.Background()) }()

	if err := ensureTable(ctx, conn, table); err != nil {
		panic(err)
	}

	start := time.Now()
	for _, file := range files {
		done, err := applied(ctx, conn, table, filepath.Base(file))
		if err != nil {
			panic(err)
		}
		if done {
			fmt.Printf("%s already applied\n", file)
			continue
		}
		if err := apply(ctx, conn, table, file); err != nil {
			panic(err)
		}
		fmt.Printf("%s file complete\n", file)
	}
	fmt.Printf("done in %s\n", time.Since(start).Round(time.Millisecond))
}
