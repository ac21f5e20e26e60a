package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"pharmabot/internal/domain/schedules"
)

type SchedulesRepo struct {
	db *DB
}

func NewSchedulesRepo(db *DB) *SchedulesRepo {
	return &SchedulesRepo{db: db}
}

const doseColumns = `id, medicine_id, owner_user_id, scheduled_time, taken, taken_at, skipped, created_at`

// CreateBatch inserta fila por fila; el caller envuelve en WithinTx.
func (r *SchedulesRepo) CreateBatch(ctx context.Context, items []schedules.DoseInstance) error {
	for _, d := range items {
		_, err := r.db.exec(ctx, `
			INSERT INTO dose_instances (`+doseColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			d.ID,
			d.MedicineID,
			d.OwnerUserID,
			toMillis(d.ScheduledTime),
			d.Taken,
			toNullMillis(d.TakenAt),
			d.Skipped,
			toMillis(d.CreatedAt),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *SchedulesRepo) GetByID(ctx context.Context, id string) (schedules.DoseInstance, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return schedules.DoseInstance{}, schedules.ErrNotFound
	}

	d, err := scanDose(r.db.queryRow(ctx, `SELECT `+doseColumns+` FROM dose_instances WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedules.DoseInstance{}, schedules.ErrNotFound
		}
		return schedules.DoseInstance{}, err
	}
	return d, nil
}

func (r *SchedulesRepo) Update(ctx context.Context, d schedules.DoseInstance) error {
	res, err := r.db.exec(ctx, `
		UPDATE dose_instances
		SET
			scheduled_time = ?,
			taken = ?,
			taken_at = ?,
			skipped = ?
		WHERE id = ?
	`,
		toMillis(d.ScheduledTime),
		d.Taken,
		toNullMillis(d.TakenAt),
		d.Skipped,
		d.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return schedules.ErrNotFound
	}
	return nil
}

func (r *SchedulesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.exec(ctx, `DELETE FROM dose_instances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return schedules.ErrNotFound
	}
	return nil
}

func (r *SchedulesRepo) DeleteFutureUntaken(ctx context.Context, medicineID, ownerUserID string, from time.Time) (int, error) {
	res, err := r.db.exec(ctx, `
		DELETE FROM dose_instances
		WHERE medicine_id = ?
		  AND owner_user_id = ?
		  AND scheduled_time >= ?
		  AND taken = ?
	`, medicineID, ownerUserID, toMillis(from), false)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *SchedulesRepo) ListByOwner(ctx context.Context, ownerUserID string, filter schedules.ListFilter) ([]schedules.DoseInstance, error) {
	var (
		where = []string{"owner_user_id = ?"}
		args  = []any{ownerUserID}
	)
	if filter.From != nil {
		where = append(where, "scheduled_time >= ?")
		args = append(args, toMillis(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "scheduled_time < ?")
		args = append(args, toMillis(*filter.To))
	}
	if filter.MedicineID != "" {
		where = append(where, "medicine_id = ?")
		args = append(args, filter.MedicineID)
	}
	if filter.PendingOnly {
		where = append(where, "taken = ?", "skipped = ?")
		args = append(args, false, false)
	}

	query := `SELECT ` + doseColumns + ` FROM dose_instances WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY scheduled_time ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]schedules.DoseInstance, 0)
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDose(s scanner) (schedules.DoseInstance, error) {
	var (
		d         schedules.DoseInstance
		scheduled int64
		takenAt   sql.NullInt64
		created   int64
	)
	if err := s.Scan(
		&d.ID,
		&d.MedicineID,
		&d.OwnerUserID,
		&scheduled,
		&d.Taken,
		&takenAt,
		&d.Skipped,
		&created,
	); err != nil {
		return schedules.DoseInstance{}, err
	}
	d.ScheduledTime = fromMillis(scheduled)
	d.TakenAt = fromNullMillis(takenAt)
	d.CreatedAt = fromMillis(created)
	return d, nil
}
