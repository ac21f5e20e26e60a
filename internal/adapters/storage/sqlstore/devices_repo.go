package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"pharmabot/internal/domain/devices"
)

// DevicesRepo implementa devices.Repository y devices.CommandQueue. Los
// comandos viven en device_commands (append-only) y cada dispositivo guarda
// hasta qué seq ya entregó.
type DevicesRepo struct {
	db *DB
}

func NewDevicesRepo(db *DB) *DevicesRepo {
	return &DevicesRepo{db: db}
}

var (
	_ devices.Repository   = (*DevicesRepo)(nil)
	_ devices.CommandQueue = (*DevicesRepo)(nil)
)

const deviceColumns = `
	device_id, owner_user_id, device_name, device_type, address,
	is_online, last_seen, hardware_state, is_active, created_at`

func (r *DevicesRepo) Create(ctx context.Context, d devices.Device) error {
	state, err := devices.EncodeHardwareState(d.State)
	if err != nil {
		return err
	}
	_, err = r.db.exec(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.DeviceID,
		d.OwnerUserID,
		d.Name,
		d.Type,
		d.Address,
		d.Online,
		toNullMillis(d.LastSeen),
		state,
		d.Active,
		toMillis(d.CreatedAt),
	)
	return err
}

// Update no toca hardware_state ni command_cursor.
func (r *DevicesRepo) Update(ctx context.Context, d devices.Device) error {
	res, err := r.db.exec(ctx, `
		UPDATE devices
		SET
			owner_user_id = ?,
			device_name = ?,
			device_type = ?,
			address = ?,
			is_online = ?,
			last_seen = ?,
			is_active = ?
		WHERE device_id = ?
	`,
		d.OwnerUserID,
		d.Name,
		d.Type,
		d.Address,
		d.Online,
		toNullMillis(d.LastSeen),
		d.Active,
		d.DeviceID,
	)
	return affectedOrNotFound(res, err)
}

func (r *DevicesRepo) Get(ctx context.Context, deviceID string) (devices.Device, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return devices.Device{}, devices.ErrNotFound
	}

	d, err := scanDevice(r.db.queryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_id = ?`, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return devices.Device{}, devices.ErrNotFound
		}
		return devices.Device{}, err
	}
	return d, nil
}

func (r *DevicesRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]devices.Device, error) {
	rows, err := r.db.query(ctx, `
		SELECT `+deviceColumns+`
		FROM devices
		WHERE owner_user_id = ?
		ORDER BY created_at ASC, device_id ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]devices.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DevicesRepo) SetOnline(ctx context.Context, deviceID string, online bool) error {
	res, err := r.db.exec(ctx, `UPDATE devices SET is_online = ? WHERE device_id = ?`, online, deviceID)
	return affectedOrNotFound(res, err)
}

func (r *DevicesRepo) UpdateTelemetry(ctx context.Context, deviceID string, t devices.Telemetry) error {
	state, err := devices.EncodeHardwareState(devices.NewHardwareState(t))
	if err != nil {
		return err
	}
	res, err := r.db.exec(ctx, `UPDATE devices SET hardware_state = ? WHERE device_id = ?`, state, deviceID)
	return affectedOrNotFound(res, err)
}

// SetHardwareStateRaw escribe el blob sin validar (carga de datos viejos).
func (r *DevicesRepo) SetHardwareStateRaw(ctx context.Context, deviceID, raw string) error {
	res, err := r.db.exec(ctx, `UPDATE devices SET hardware_state = ? WHERE device_id = ?`, raw, deviceID)
	return affectedOrNotFound(res, err)
}

// Enqueue bloquea la fila del dispositivo antes de insertar, así el seq
// asignado y el commit quedan ordenados respecto de Drain.
func (r *DevicesRepo) Enqueue(ctx context.Context, deviceID string, c devices.Command) (devices.Command, error) {
	params := c.Params
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}

	var out devices.Command
	err := r.db.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := r.lockCursor(ctx, deviceID); err != nil {
			return err
		}

		var seq int64
		err := r.db.queryRow(ctx, `
			INSERT INTO device_commands (device_id, command, params, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING seq
		`, deviceID, c.Command, string(params), toMillis(c.Timestamp)).Scan(&seq)
		if err != nil {
			return err
		}

		out = c
		out.Seq = seq
		out.DeviceID = deviceID
		out.Params = params
		return nil
	})
	return out, err
}

// Drain lee todo lo posterior al cursor y lo avanza en la misma transacción.
// Si el cursor cambió entre medio devuelve ErrDrainConflict.
func (r *DevicesRepo) Drain(ctx context.Context, deviceID string) ([]devices.Command, error) {
	out := make([]devices.Command, 0)
	err := r.db.WithinTx(ctx, func(ctx context.Context) error {
		cursor, err := r.lockCursor(ctx, deviceID)
		if err != nil {
			return err
		}

		rows, err := r.db.query(ctx, `
			SELECT seq, command, params, created_at
			FROM device_commands
			WHERE device_id = ? AND seq > ?
			ORDER BY seq ASC
		`, deviceID, cursor)
		if err != nil {
			return err
		}
		for rows.Next() {
			var (
				c       devices.Command
				params  string
				created int64
			)
			if err := rows.Scan(&c.Seq, &c.Command, &params, &created); err != nil {
				rows.Close()
				return err
			}
			c.DeviceID = deviceID
			c.Params = json.RawMessage(params)
			c.Timestamp = fromMillis(created)
			out = append(out, c)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}

		last := out[len(out)-1].Seq
		res, err := r.db.exec(ctx, `
			UPDATE devices SET command_cursor = ?
			WHERE device_id = ? AND command_cursor = ?
		`, last, deviceID, cursor)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return devices.ErrDrainConflict
		}

		// Lo entregado ya no se vuelve a leer.
		_, err = r.db.exec(ctx, `DELETE FROM device_commands WHERE device_id = ? AND seq <= ?`, deviceID, last)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DevicesRepo) lockCursor(ctx context.Context, deviceID string) (int64, error) {
	var cursor int64
	err := r.db.queryRow(ctx, `SELECT command_cursor FROM devices WHERE device_id = ?`+r.db.forUpdate(), deviceID).Scan(&cursor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, devices.ErrNotFound
		}
		return 0, err
	}
	return cursor, nil
}

func scanDevice(s scanner) (devices.Device, error) {
	var (
		d        devices.Device
		lastSeen sql.NullInt64
		state    string
		created  int64
	)
	if err := s.Scan(
		&d.DeviceID,
		&d.OwnerUserID,
		&d.Name,
		&d.Type,
		&d.Address,
		&d.Online,
		&lastSeen,
		&state,
		&d.Active,
		&created,
	); err != nil {
		return devices.Device{}, err
	}
	d.LastSeen = fromNullMillis(lastSeen)
	d.CreatedAt = fromMillis(created)

	hs, err := devices.DecodeHardwareState(state)
	d.State = hs
	d.StateMalformed = err != nil
	return d, nil
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return devices.ErrNotFound
	}
	return nil
}
