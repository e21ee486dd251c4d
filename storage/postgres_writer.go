package storage

import (
	"database/sql"
	"fmt"
	"time"

	"mist-map-backup/models"
	"mist-map-backup/utils"

	_ "github.com/lib/pq"
)

// PostgresWriter mirrors each run's AP inventory into PostgreSQL
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresWriter creates a new PostgresWriter and pings the DB
func NewPostgresWriter(connStr string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return &PostgresWriter{db: db, logger: logger}, nil
}

// CreateTable creates the ap_inventory table if it doesn't exist, with indexes
func (w *PostgresWriter) CreateTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS ap_inventory (
		id          SERIAL PRIMARY KEY,
		run_id      UUID         NOT NULL,
		site_id     TEXT         NOT NULL,
		site_name   TEXT         NOT NULL,
		ap_name     TEXT         NOT NULL,
		model       TEXT         NOT NULL DEFAULT '',
		map_id      TEXT         NOT NULL,
		height      DOUBLE PRECISION,
		mount       TEXT,
		orientation DOUBLE PRECISION,
		x           DOUBLE PRECISION,
		y           DOUBLE PRECISION,
		backup_date DATE         NOT NULL,
		recorded_at TIMESTAMP    NOT NULL DEFAULT NOW(),
		UNIQUE (site_id, ap_name, backup_date)
	);

	CREATE INDEX IF NOT EXISTS idx_ap_inventory_site   ON ap_inventory (site_id);
	CREATE INDEX IF NOT EXISTS idx_ap_inventory_map    ON ap_inventory (map_id);
	CREATE INDEX IF NOT EXISTS idx_ap_inventory_model  ON ap_inventory (model);
	`
	_, err := w.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	w.logger.Info("Table 'ap_inventory' is ready")
	return nil
}

// SaveInventory upserts the snapshot in a single transaction. A rerun on the
// same day replaces that day's rows.
func (w *PostgresWriter) SaveInventory(snapshot *models.InventorySnapshot) (err error) {
	if len(snapshot.APs) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT INTO ap_inventory (run_id, site_id, site_name, ap_name, model, map_id,
			height, mount, orientation, x, y, backup_date, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (site_id, ap_name, backup_date) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			site_name = EXCLUDED.site_name,
			model = EXCLUDED.model,
			map_id = EXCLUDED.map_id,
			height = EXCLUDED.height,
			mount = EXCLUDED.mount,
			orientation = EXCLUDED.orientation,
			x = EXCLUDED.x,
			y = EXCLUDED.y,
			recorded_at = EXCLUDED.recorded_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	day := snapshot.TakenAt.Format("2006-01-02")
	for _, ap := range snapshot.APs {
		// a failed statement aborts the whole transaction in PostgreSQL
		if _, err = stmt.Exec(
			snapshot.RunID,
			snapshot.SiteID,
			snapshot.SiteName,
			ap.Name,
			ap.Model,
			ap.MapID,
			nullFloat(ap.Height),
			nullString(ap.Mount),
			nullFloat(ap.Orientation),
			nullFloat(ap.X),
			nullFloat(ap.Y),
			day,
			snapshot.TakenAt,
		); err != nil {
			return fmt.Errorf("failed to store AP '%s': %w", ap.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.logger.Info("Stored %d APs in PostgreSQL table ap_inventory", len(snapshot.APs))
	return nil
}

// Close closes the database connection
func (w *PostgresWriter) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
