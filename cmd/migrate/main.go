package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/kevin07696/recon-service/internal/config"
	"github.com/kevin07696/recon-service/internal/db"
)

const dialect = "postgres"

var (
	flags = flag.NewFlagSet("migrate", flag.ExitOnError)
	dir   = flags.String("dir", "", "directory with migration files (default: migrations embedded in the binary)")
)

func main() {
	flags.Usage = usage
	flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		return
	}

	command := args[0]

	// Same DB_* variables and defaults as the server
	dbCfg := config.Default().Database
	dbCfg.Host = getEnv("DB_HOST", dbCfg.Host)
	dbCfg.Port = getEnvInt("DB_PORT", dbCfg.Port)
	dbCfg.User = getEnv("DB_USER", dbCfg.User)
	dbCfg.Password = getEnv("DB_PASSWORD", dbCfg.Password)
	dbCfg.Database = getEnv("DB_NAME", dbCfg.Database)
	dbCfg.SSLMode = getEnv("DB_SSL_MODE", dbCfg.SSLMode)

	migrationsDir := *dir
	if migrationsDir == "" {
		if command == "create" {
			log.Fatalf("create needs -dir pointing at the source migrations directory")
		}
		goose.SetBaseFS(db.Migrations)
		migrationsDir = db.MigrationsDir
	}

	conn, err := sql.Open("pgx", dbCfg.ConnectionString())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := goose.SetDialect(dialect); err != nil {
		log.Fatalf("failed to set dialect: %v", err)
	}

	if err := goose.Run(command, conn, migrationsDir, args[1:]...); err != nil {
		log.Fatalf("goose %v: %v", command, err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func usage() {
	fmt.Print(`Usage: migrate [-dir DIR] COMMAND

Commands:
    up                   Migrate the DB to the most recent version available
    up-by-one            Migrate the DB up by 1
    up-to VERSION        Migrate the DB to a specific VERSION
    down                 Roll back the version by 1
    down-to VERSION      Roll back to a specific VERSION
    redo                 Re-run the latest migration
    reset                Roll back all migrations
    status               Dump the migration status for the current DB
    version              Print the current version of the database
    create NAME [sql|go] Creates new migration file with the current timestamp (requires -dir)

Examples:
    migrate up
    migrate status
    migrate -dir internal/db/migrations create add_settlement_index sql
`)
}
