package main

import (
	"database/sql"
	"flag"
	"os"

	"auction-marketplace/internal/config"
	"auction-marketplace/internal/infrastructure/mysql/migrations"
	"auction-marketplace/pkg/logger"

	gomysql "github.com/go-sql-driver/mysql"
)

func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatal("Failed to load config", "error", err)
	}
	log := logger.NewWithLevel(cfg.Log.Level).With("service", "migrate")

	dsn, err := gomysql.ParseDSN(cfg.MySQL.DSN)
	if err != nil {
		log.Fatal("Invalid MySQL DSN", "error", err)
	}
	dsn.ParseTime = true

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		log.Fatal("Failed to connect to MySQL", "error", err)
	}
	defer db.Close()

	switch command {
	case "up":
		err = migrations.Up(db)
	case "down":
		err = migrations.Down(db, *steps)
	case "version":
		var version uint
		var dirty bool
		version, dirty, err = migrations.Version(db)
		if err == nil {
			log.Info("Schema version", "version", version, "dirty", dirty)
		}
	default:
		log.Error("Unknown command, expected up, down or version", "command", command)
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("Migration failed", "command", command, "error", err)
	}
	log.Info("Migration finished", "command", command)
}

