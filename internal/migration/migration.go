package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	carpooldomain "github.com/smallbiznis/guestlist/internal/carpool/domain"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
	transportdomain "github.com/smallbiznis/guestlist/internal/transport/domain"
	dbpkg "github.com/smallbiznis/guestlist/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table the service owns, parents first.
func Models() []any {
	return []any{
		&guestdomain.Guest{},
		&guestdomain.HistoryEntry{},
		&guestdomain.CommunicationLogEntry{},
		&transportdomain.Option{},
		&transportdomain.Schedule{},
		&transportdomain.SeatBooking{},
		&carpooldomain.Offer{},
		&carpooldomain.Participant{},
	}
}

// Run brings the schema up to date. Postgres uses the versioned SQL
// migrations; MySQL and SQLite are migrated from the models.
func Run(conn *gorm.DB, log *zap.Logger) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	dialect := conn.Dialector.Name()
	if dialect != dbpkg.TypePostgres {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("schema migrated from models", zap.String("dialect", dialect))
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.
	return nil
}
