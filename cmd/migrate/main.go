package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"contacts-server/internal/config"
	"contacts-server/internal/database"
	pkgdatabase "contacts-server/pkg/database"
)

func main() {
	initLogger()

	command := flag.String("command", "up", "Migration command: up, down, steps, force, version")
	steps := flag.Int("steps", 0, "Number of steps for the steps command (negative rolls back)")
	version := flag.Uint("version", 0, "Target version for the force command")
	envFile := flag.String("env-file", ".env", "Path to the .env file")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := pkgdatabase.New(pkgdatabase.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Pool)

	switch *command {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "steps":
		if *steps == 0 {
			log.Fatal().Msg("steps command requires a non-zero -steps value")
		}
		err = migrator.Steps(*steps)
	case "force":
		err = migrator.ForceVersion(*version)
	case "version":
		current, dirty, verr := migrator.Version()
		if verr != nil {
			log.Fatal().Err(verr).Msg("failed to get migration version")
		}
		log.Info().Uint("version", current).Bool("dirty", dirty).Msg("current migration version")
		return
	default:
		log.Fatal().Str("command", *command).Msg("unknown migration command")
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
}

func initLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Caller().Logger()

	// В режиме разработки используем более читаемый вывод
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	}

	logLevel := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logLevel = lvl
	}
	zerolog.SetGlobalLevel(logLevel)
}
