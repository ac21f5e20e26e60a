package memory

import (
	"context"
	"maps"
	"sync"

	"pharmabot/internal/domain/devices"
	"pharmabot/internal/domain/prescriptions"
	"pharmabot/internal/domain/schedules"
	"pharmabot/internal/domain/users"
)

// Store guarda todo bajo un único lock. Sirve para dev y tests; no persiste.
type Store struct {
	mu sync.RWMutex

	users     map[string]users.User
	usernames map[string]string

	prescriptions map[string]prescriptions.Prescription
	medicines     map[string]prescriptions.Medicine

	doses map[string]schedules.DoseInstance

	// devices guarda el hardware_state serializado, igual que el adapter SQL.
	devices  map[string]deviceRow
	commands map[string][]devices.Command
	seq      int64
}

type deviceRow struct {
	device devices.Device
	state  string
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]users.User),
		usernames:     make(map[string]string),
		prescriptions: make(map[string]prescriptions.Prescription),
		medicines:     make(map[string]prescriptions.Medicine),
		doses:         make(map[string]schedules.DoseInstance),
		devices:       make(map[string]deviceRow),
		commands:      make(map[string][]devices.Command),
	}
}

type txKey struct{}

// WithinTx toma el lock de escritura, guarda una foto de los mapas y la
// restaura si fn falla o entra en panic (el panic se relanza). Las llamadas
// anidadas reutilizan la misma transacción.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(*Store)
	return v == s
}

// rlock/lock no hacen nada dentro de WithinTx: el lock ya está tomado.
func (s *Store) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	users         map[string]users.User
	usernames     map[string]string
	prescriptions map[string]prescriptions.Prescription
	medicines     map[string]prescriptions.Medicine
	doses         map[string]schedules.DoseInstance
	devices       map[string]deviceRow
	commands      map[string][]devices.Command
	seq           int64
}

// Los logs de comandos sólo crecen por append o se reemplazan, así que
// alcanza con copiar los headers de los slices.
func (s *Store) snapshot() snapshot {
	return snapshot{
		users:         maps.Clone(s.users),
		usernames:     maps.Clone(s.usernames),
		prescriptions: maps.Clone(s.prescriptions),
		medicines:     maps.Clone(s.medicines),
		doses:         maps.Clone(s.doses),
		devices:       maps.Clone(s.devices),
		commands:      maps.Clone(s.commands),
		seq:           s.seq,
	}
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.usernames = snap.usernames
	s.prescriptions = snap.prescriptions
	s.medicines = snap.medicines
	s.doses = snap.doses
	s.devices = snap.devices
	s.commands = snap.commands
	s.seq = snap.seq
}
