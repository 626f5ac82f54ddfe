package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/theoremus-urban-solutions/fleet-tracker/fleet"
)

// MySQLStore implements fleet.Store on a MySQL database.
type MySQLStore struct {
	db *sql.DB
}

// Open connects to MySQL using a go-sql-driver DSN. The DSN must carry
// parseTime=true so TIMESTAMP columns scan into time.Time.
func Open(dsn string, maxOpen, maxIdle int) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return &MySQLStore{db: db}, nil
}

// NewMySQLStore wraps an existing handle. Used by tests with sqlmock.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// VehicleCount returns the number of rows in the vehicles table. Used for the
// startup connectivity report.
func (s *MySQLStore) VehicleCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicles").Scan(&n)
	return n, err
}

func (s *MySQLStore) LoadVehicles(ctx context.Context) ([]fleet.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, status, driver, latitude, longitude, updated_at FROM vehicles")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fleet.Vehicle
	for rows.Next() {
		var v fleet.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Status, &v.Driver, &v.Latitude, &v.Longitude, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *MySQLStore) InsertVehicle(ctx context.Context, v fleet.Vehicle) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO vehicles (id, name, status, driver, latitude, longitude, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		v.ID, v.Name, string(v.Status), v.Driver, v.Latitude, v.Longitude, v.UpdatedAt)
	return err
}

// UpdateVehicle writes the vehicle row and, when rec is non-nil, appends the
// history record in the same transaction.
func (s *MySQLStore) UpdateVehicle(ctx context.Context, v fleet.Vehicle, rec *fleet.HistoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE vehicles SET name = ?, status = ?, driver = ?, latitude = ?, longitude = ?, updated_at = ? WHERE id = ?",
		v.Name, string(v.Status), v.Driver, v.Latitude, v.Longitude, v.UpdatedAt, v.ID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if rec != nil {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO vehicle_history (vehicle_id, latitude, longitude, recorded_at) VALUES (?, ?, ?, ?)",
			rec.VehicleID, rec.Latitude, rec.Longitude, rec.RecordedAt)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *MySQLStore) DeleteVehicle(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM vehicles WHERE id = ?", id)
	return err
}

// VehicleHistory returns the position trail newest first. Unbounded: pruning
// and pagination are left to the store's own retention.
func (s *MySQLStore) VehicleHistory(ctx context.Context, id string) ([]fleet.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT vehicle_id, latitude, longitude, recorded_at FROM vehicle_history WHERE vehicle_id = ? ORDER BY recorded_at DESC, id DESC",
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []fleet.HistoryRecord{}
	for rows.Next() {
		var r fleet.HistoryRecord
		if err := rows.Scan(&r.VehicleID, &r.Latitude, &r.Longitude, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ fleet.Store = (*MySQLStore)(nil)
