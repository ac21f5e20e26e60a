package sqlstore

import (
	"context"
	"fmt"
)

// Tiempos en BIGINT (unix millis); fechas civiles en TEXT YYYY-MM-DD.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		doctor_name TEXT NOT NULL DEFAULT '',
		prescription_date TEXT NULL,
		patient_name TEXT NOT NULL DEFAULT '',
		patient_age TEXT NOT NULL DEFAULT '',
		patient_gender TEXT NOT NULL DEFAULT '',
		parsed_data TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prescriptions_owner ON prescriptions (owner_user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS medicines (
		id TEXT PRIMARY KEY,
		prescription_id TEXT NOT NULL REFERENCES prescriptions (id),
		owner_user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		dosage TEXT NOT NULL,
		frequency TEXT NOT NULL,
		duration TEXT NOT NULL DEFAULT '',
		instructions TEXT NOT NULL DEFAULT '',
		timing TEXT NOT NULL DEFAULT '',
		compartment_number INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_medicines_prescription ON medicines (prescription_id)`,
	`CREATE INDEX IF NOT EXISTS idx_medicines_owner ON medicines (owner_user_id)`,
	`CREATE TABLE IF NOT EXISTS dose_instances (
		id TEXT PRIMARY KEY,
		medicine_id TEXT NOT NULL REFERENCES medicines (id),
		owner_user_id TEXT NOT NULL,
		scheduled_time BIGINT NOT NULL,
		taken BOOLEAN NOT NULL DEFAULT FALSE,
		taken_at BIGINT NULL,
		skipped BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_doses_owner_time ON dose_instances (owner_user_id, scheduled_time)`,
	`CREATE INDEX IF NOT EXISTS idx_doses_medicine ON dose_instances (medicine_id)`,
	`CREATE TABLE IF NOT EXISTS devices (
		device_id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		device_name TEXT NOT NULL DEFAULT '',
		device_type TEXT NOT NULL DEFAULT 'ESP32',
		address TEXT NOT NULL DEFAULT '',
		is_online BOOLEAN NOT NULL DEFAULT FALSE,
		last_seen BIGINT NULL,
		hardware_state TEXT NOT NULL DEFAULT '',
		command_cursor BIGINT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_owner ON devices (owner_user_id)`,
}

func commandLogDDL(d Dialect) string {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == Postgres {
		seq = "seq BIGSERIAL PRIMARY KEY"
	}
	return `CREATE TABLE IF NOT EXISTS device_commands (
		` + seq + `,
		device_id TEXT NOT NULL,
		command TEXT NOT NULL,
		params TEXT NOT NULL DEFAULT '{}',
		created_at BIGINT NOT NULL
	)`
}

// Migrate crea las tablas que falten. Es idempotente.
func (s *DB) Migrate(ctx context.Context) error {
	stmts := append(append([]string{}, schema...),
		commandLogDDL(s.dialect),
		`CREATE INDEX IF NOT EXISTS idx_device_commands_device_seq ON device_commands (device_id, seq)`,
	)
	for i, stmt := range stmts {
		if _, err := s.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
