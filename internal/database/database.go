package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"commerce-service/internal/config"
	"commerce-service/internal/repository"
	"commerce-service/internal/repository/memstore"
	"commerce-service/migrations"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

// Connect opens dsn and pings it until the database answers or attempts run out.
func Connect(ctx context.Context, driver, dsn string, attempts int, wait time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	for i := 1; i <= attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			log.Info().Msgf("Connected to %s database", driver)
			return db, nil
		}
		log.Warn().Err(err).Msgf("Retry %d/%d: failed to connect to %s database", i, attempts, driver)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("failed to connect to %s database after %d attempts: %w", driver, attempts, err)
}

// OpenStore returns the store selected by cfg.DBDriver and a function that
// releases it. A mysql schema is migrated before the store is returned.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, func() error, error) {
	if cfg.DBDriver == "memory" {
		log.Warn().Msg("Using the in-memory store, data is lost on restart")
		return memstore.New(), func() error { return nil }, nil
	}

	db, err := Connect(ctx, cfg.DBDriver, cfg.DBDSN, 10, 3*time.Second)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.AutoMigrate(3, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repository.NewSQLStore(db), db.Close, nil
}
