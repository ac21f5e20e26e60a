package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"pharmabot/internal/domain/prescriptions"
	"pharmabot/internal/platform/clock"
)

type PrescriptionsRepo struct {
	db *DB
}

func NewPrescriptionsRepo(db *DB) *PrescriptionsRepo {
	return &PrescriptionsRepo{db: db}
}

const prescriptionColumns = `
	id, owner_user_id, doctor_name, prescription_date,
	patient_name, patient_age, patient_gender,
	parsed_data, is_active, created_at`

const medicineColumns = `
	id, prescription_id, owner_user_id,
	name, dosage, frequency, duration, instructions, timing,
	compartment_number, position, is_active, created_at`

func (r *PrescriptionsRepo) Create(ctx context.Context, p prescriptions.Prescription) error {
	_, err := r.db.exec(ctx, `
		INSERT INTO prescriptions (`+prescriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID,
		p.OwnerUserID,
		p.DoctorName,
		toNullDate(p),
		p.PatientName,
		p.PatientAge,
		p.PatientGender,
		p.ParsedData,
		p.Active,
		toMillis(p.CreatedAt),
	)
	return err
}

func (r *PrescriptionsRepo) GetByID(ctx context.Context, id string) (prescriptions.Prescription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return prescriptions.Prescription{}, prescriptions.ErrNotFound
	}

	row := r.db.queryRow(ctx, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = ?`, id)
	p, err := scanPrescription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return prescriptions.Prescription{}, prescriptions.ErrNotFound
		}
		return prescriptions.Prescription{}, err
	}
	return p, nil
}

func (r *PrescriptionsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]prescriptions.Prescription, error) {
	rows, err := r.db.query(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE owner_user_id = ?
		ORDER BY created_at DESC, id ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]prescriptions.Prescription, 0)
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PrescriptionsRepo) CreateMedicines(ctx context.Context, items []prescriptions.Medicine) error {
	for _, m := range items {
		_, err := r.db.exec(ctx, `
			INSERT INTO medicines (`+medicineColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			m.ID,
			m.PrescriptionID,
			m.OwnerUserID,
			m.Name,
			m.Dosage,
			m.Frequency,
			m.Duration,
			m.Instructions,
			m.Timing,
			m.CompartmentNumber,
			m.Position,
			m.Active,
			toMillis(m.CreatedAt),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *PrescriptionsRepo) GetMedicine(ctx context.Context, id string) (prescriptions.Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return prescriptions.Medicine{}, prescriptions.ErrNotFound
	}

	row := r.db.queryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = ?`, id)
	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return prescriptions.Medicine{}, prescriptions.ErrNotFound
		}
		return prescriptions.Medicine{}, err
	}
	return m, nil
}

func (r *PrescriptionsRepo) UpdateMedicine(ctx context.Context, m prescriptions.Medicine) error {
	res, err := r.db.exec(ctx, `
		UPDATE medicines
		SET
			frequency = ?,
			duration = ?,
			timing = ?,
			instructions = ?,
			compartment_number = ?,
			is_active = ?
		WHERE id = ?
	`,
		m.Frequency,
		m.Duration,
		m.Timing,
		m.Instructions,
		m.CompartmentNumber,
		m.Active,
		m.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return prescriptions.ErrNotFound
	}
	return nil
}

func (r *PrescriptionsRepo) ListMedicinesByPrescription(ctx context.Context, prescriptionID string) ([]prescriptions.Medicine, error) {
	return r.listMedicines(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE prescription_id = ?
		ORDER BY created_at ASC, position ASC, id ASC
	`, prescriptionID)
}

func (r *PrescriptionsRepo) ListMedicinesByOwner(ctx context.Context, ownerUserID string) ([]prescriptions.Medicine, error) {
	return r.listMedicines(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE owner_user_id = ?
		ORDER BY created_at ASC, position ASC, id ASC
	`, ownerUserID)
}

func (r *PrescriptionsRepo) listMedicines(ctx context.Context, query, arg string) ([]prescriptions.Medicine, error) {
	rows, err := r.db.query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]prescriptions.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrescription(s scanner) (prescriptions.Prescription, error) {
	var (
		p       prescriptions.Prescription
		date    sql.NullString
		created int64
	)
	if err := s.Scan(
		&p.ID,
		&p.OwnerUserID,
		&p.DoctorName,
		&date,
		&p.PatientName,
		&p.PatientAge,
		&p.PatientGender,
		&p.ParsedData,
		&p.Active,
		&created,
	); err != nil {
		return prescriptions.Prescription{}, err
	}
	if date.Valid && date.String != "" {
		if t, err := clock.ParseDate(date.String); err == nil {
			p.PrescriptionDate = &t
		}
	}
	p.CreatedAt = fromMillis(created)
	return p, nil
}

func scanMedicine(s scanner) (prescriptions.Medicine, error) {
	var (
		m       prescriptions.Medicine
		created int64
	)
	if err := s.Scan(
		&m.ID,
		&m.PrescriptionID,
		&m.OwnerUserID,
		&m.Name,
		&m.Dosage,
		&m.Frequency,
		&m.Duration,
		&m.Instructions,
		&m.Timing,
		&m.CompartmentNumber,
		&m.Position,
		&m.Active,
		&created,
	); err != nil {
		return prescriptions.Medicine{}, err
	}
	m.CreatedAt = fromMillis(created)
	return m, nil
}

func toNullDate(p prescriptions.Prescription) sql.NullString {
	if p.PrescriptionDate == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: p.PrescriptionDate.In(clock.Local).Format(clock.DateLayout), Valid: true}
}
