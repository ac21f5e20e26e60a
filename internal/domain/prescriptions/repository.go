package prescriptions

import "context"

type Repository interface {
	Create(ctx context.Context, p Prescription) error
	GetByID(ctx context.Context, id string) (Prescription, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Prescription, error)

	CreateMedicines(ctx context.Context, items []Medicine) error
	GetMedicine(ctx context.Context, id string) (Medicine, error)
	UpdateMedicine(ctx context.Context, m Medicine) error
	ListMedicinesByPrescription(ctx context.Context, prescriptionID string) ([]Medicine, error)
	ListMedicinesByOwner(ctx context.Context, ownerUserID string) ([]Medicine, error)
}
