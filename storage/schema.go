package storage

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS vehicles (
		id         VARCHAR(26)  NOT NULL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		status     VARCHAR(16)  NOT NULL,
		driver     VARCHAR(255) NOT NULL DEFAULT '',
		latitude   DOUBLE       NOT NULL,
		longitude  DOUBLE       NOT NULL,
		updated_at TIMESTAMP    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vehicle_history (
		id          BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		vehicle_id  VARCHAR(26)  NOT NULL,
		latitude    DOUBLE       NOT NULL,
		longitude   DOUBLE       NOT NULL,
		recorded_at TIMESTAMP    NOT NULL,
		KEY idx_vehicle_history_vehicle (vehicle_id, recorded_at)
	)`,
}

// EnsureSchema creates the vehicles and vehicle_history tables when missing.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
