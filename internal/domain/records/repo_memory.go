package records

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps both tables in process memory. It backs the "memory"
// store driver and the package tests. Returned records are copies.
type MemoryStore struct {
	mu            sync.RWMutex
	txMu          sync.Mutex
	patients      map[uuid.UUID]*Patient
	consultations map[uuid.UUID]*Consultation
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients:      make(map[uuid.UUID]*Patient),
		consultations: make(map[uuid.UUID]*Consultation),
		now:           time.Now,
	}
}

// SetClock replaces the time source used for created_at/updated_at.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) Patients() PatientRepository {
	return (*memoryPatients)(s)
}

func (s *MemoryStore) Consultations() ConsultationRepository {
	return (*memoryConsultations)(s)
}

// InTx serializes transactions and restores both tables when fn fails.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	patients := make(map[uuid.UUID]*Patient, len(s.patients))
	for k, v := range s.patients {
		patients[k] = v
	}
	consultations := make(map[uuid.UUID]*Consultation, len(s.consultations))
	for k, v := range s.consultations {
		consultations[k] = v
	}
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.patients = patients
		s.consultations = consultations
		s.mu.Unlock()
		return err
	}
	return nil
}

// cloneFlat copies a flat record so no pointer or slice is shared with the
// original.
func cloneFlat[T any](src *T) *T {
	dst := new(T)
	*dst = *src
	v := reflect.ValueOf(dst).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		switch f.Kind() {
		case reflect.Ptr:
			if !f.IsNil() {
				cp := reflect.New(f.Type().Elem())
				cp.Elem().Set(f.Elem())
				f.Set(cp)
			}
		case reflect.Slice:
			if !f.IsNil() {
				cp := reflect.MakeSlice(f.Type(), f.Len(), f.Len())
				reflect.Copy(cp, f)
				f.Set(cp)
			}
		}
	}
	return dst
}

func copyPatient(p *Patient) *Patient { return cloneFlat(p) }

func copyConsultation(c *Consultation) *Consultation { return cloneFlat(c) }

// lessByColumn compares one column of two records. nil sorts before any
// value, mirroring NULLS FIRST for ascending order.
func lessByColumn(a, b reflect.Value) (less, equal bool) {
	if a.Kind() == reflect.Ptr {
		switch {
		case a.IsNil() && b.IsNil():
			return false, true
		case a.IsNil():
			return true, false
		case b.IsNil():
			return false, false
		}
		a, b = a.Elem(), b.Elem()
	}
	switch a.Kind() {
	case reflect.String:
		return a.String() < b.String(), a.String() == b.String()
	case reflect.Float64:
		return a.Float() < b.Float(), a.Float() == b.Float()
	case reflect.Bool:
		return !a.Bool() && b.Bool(), a.Bool() == b.Bool()
	}
	switch av := a.Interface().(type) {
	case time.Time:
		bv := b.Interface().(time.Time)
		return av.Before(bv), av.Equal(bv)
	case uuid.UUID:
		bv := b.Interface().(uuid.UUID)
		c := strings.Compare(av.String(), bv.String())
		return c < 0, c == 0
	}
	return false, true
}

func fieldIndexByTag(t reflect.Type, tag string) int {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("json") == tag {
			return i
		}
	}
	return -1
}

func sortRecords[T any](items []*T, order Order) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	col := fieldIndexByTag(t, order.Column)
	idCol := fieldIndexByTag(t, "id")
	sort.SliceStable(items, func(i, j int) bool {
		a := reflect.ValueOf(items[i]).Elem()
		b := reflect.ValueOf(items[j]).Elem()
		less, equal := lessByColumn(a.Field(col), b.Field(col))
		if equal {
			less, equal = lessByColumn(a.Field(idCol), b.Field(idCol))
			if equal {
				return false
			}
		}
		if order.Descending {
			return !less
		}
		return less
	})
}

// -- pacientes --

type memoryPatients MemoryStore

func (r *memoryPatients) store() *MemoryStore { return (*MemoryStore)(r) }

func (r *memoryPatients) List(ctx context.Context, orderBy string) ([]*Patient, error) {
	order, err := ParseOrder(orderBy, PatientOrderColumns)
	if err != nil {
		return nil, err
	}
	s := r.store()
	s.mu.RLock()
	out := make([]*Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, copyPatient(p))
	}
	s.mu.RUnlock()
	sortRecords(out, order)
	return out, nil
}

func (r *memoryPatients) Create(ctx context.Context, p *Patient) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	if p.MapaDental == nil {
		p.MapaDental = []int{}
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.patients[p.ID] = copyPatient(p)
	return nil
}

func (r *memoryPatients) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*Patient, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := copyPatient(cur)
	if err := ApplyPatientFields(next, fields); err != nil {
		return nil, err
	}
	if next.MapaDental == nil {
		next.MapaDental = []int{}
	}
	next.UpdatedAt = s.now()
	s.patients[id] = next
	return copyPatient(next), nil
}

func (r *memoryPatients) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return false, ErrNotFound
	}
	delete(s.patients, id)
	return true, nil
}

func (r *memoryPatients) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPatient(p), nil
}

// -- consultas --

type memoryConsultations MemoryStore

func (r *memoryConsultations) store() *MemoryStore { return (*MemoryStore)(r) }

func (r *memoryConsultations) List(ctx context.Context, orderBy string) ([]*Consultation, error) {
	order, err := ParseOrder(orderBy, ConsultationOrderColumns)
	if err != nil {
		return nil, err
	}
	s := r.store()
	s.mu.RLock()
	out := make([]*Consultation, 0, len(s.consultations))
	for _, c := range s.consultations {
		out = append(out, copyConsultation(c))
	}
	s.mu.RUnlock()
	sortRecords(out, order)
	return out, nil
}

func (r *memoryConsultations) Create(ctx context.Context, c *Consultation) error {
	return r.BulkCreate(ctx, []*Consultation{c})
}

func (r *memoryConsultations) BulkCreate(ctx context.Context, cs []*Consultation) error {
	for _, c := range cs {
		if c.PacienteID == uuid.Nil {
			return ErrMissingPatientID
		}
		if _, err := time.Parse("2006-01-02", c.DataAtendimento); err != nil {
			return fmt.Errorf("consulta create: invalid data_atendimento %q", c.DataAtendimento)
		}
	}
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, c := range cs {
		c.ID = uuid.New()
		c.CreatedAt, c.UpdatedAt = now, now
		s.consultations[c.ID] = copyConsultation(c)
	}
	return nil
}

func (r *memoryConsultations) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*Consultation, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.consultations[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := copyConsultation(cur)
	if err := ApplyConsultationFields(next, fields); err != nil {
		return nil, err
	}
	if next.PacienteID == uuid.Nil {
		return nil, ErrMissingPatientID
	}
	next.UpdatedAt = s.now()
	s.consultations[id] = next
	return copyConsultation(next), nil
}

func (r *memoryConsultations) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consultations[id]; !ok {
		return false, ErrNotFound
	}
	delete(s.consultations, id)
	return true, nil
}

func (r *memoryConsultations) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consultations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConsultation(c), nil
}
