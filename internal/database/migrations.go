package database

import (
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"

	"contacts-server/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewMigrator возвращает мигратор поверх встроенных файлов миграций
func NewMigrator(pool *pgxpool.Pool) *migration.Migrator {
	return migration.NewMigrator(migration.Config{
		MigrationsPath: "migrations",
		MigrationsFS:   migrationsFS,
	}, pool)
}

// ApplyMigrations применяет все встроенные миграции к базе данных
func ApplyMigrations(pool *pgxpool.Pool) error {
	return NewMigrator(pool).Up()
}
