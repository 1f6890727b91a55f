package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/domain/records"
)

// countingPatients records every call that reaches the store.
type countingPatients struct {
	records.PatientRepository
	calls     int
	createErr error
}

func (r *countingPatients) Create(ctx context.Context, p *records.Patient) error {
	r.calls++
	if r.createErr != nil {
		return r.createErr
	}
	return r.PatientRepository.Create(ctx, p)
}

func (r *countingPatients) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*records.Patient, error) {
	r.calls++
	return r.PatientRepository.Update(ctx, id, fields)
}

type failingConsultations struct {
	records.ConsultationRepository
}

func (r *failingConsultations) BulkCreate(ctx context.Context, cs []*records.Consultation) error {
	return errors.New("connection reset")
}

func newTestService(t *testing.T) (*Service, *records.MemoryStore, *countingPatients) {
	t.Helper()
	store := records.NewMemoryStore()
	patients := &countingPatients{PatientRepository: store.Patients()}
	svc := NewService(patients, store.Consultations(), store, NewDraftStore(), zerolog.Nop())
	return svc, store, patients
}

func anaDraft(t *testing.T) *Draft {
	t.Helper()
	d := NewDraft()
	if err := d.SetFields(map[string]any{
		"nome_crianca":     "Ana",
		"responsavel_nome": "Maria",
		"idade":            "5",
	}); err != nil {
		t.Fatalf("SetFields: %v", err)
	}
	if err := d.AddConsultation(DraftConsultation{DataAtendimento: "2024-03-01", Peso: "18.5"}); err != nil {
		t.Fatalf("AddConsultation: %v", err)
	}
	return d
}

func TestSubmit_CreatesPatientAndConsultations(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Submit(ctx, anaDraft(t))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Redirect != "/dashboard" {
		t.Errorf("redirect = %q", res.Redirect)
	}

	p, err := store.Patients().GetByID(ctx, res.Patient.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.Idade == nil || *p.Idade != 5 {
		t.Errorf("idade = %v, want 5", p.Idade)
	}
	if p.NecessidadeEspecial != nil {
		t.Error("untouched tri-state must be stored as null")
	}
	if p.MapaDental == nil || len(p.MapaDental) != 0 {
		t.Errorf("mapa_dental = %#v", p.MapaDental)
	}

	cons, err := store.Consultations().List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cons) != 1 {
		t.Fatalf("expected 1 consultation, got %d", len(cons))
	}
	if cons[0].PacienteID != p.ID {
		t.Error("consultation must reference the new patient")
	}
	if cons[0].Peso == nil || *cons[0].Peso != 18.5 {
		t.Errorf("peso = %v, want 18.5", cons[0].Peso)
	}
}

func TestSubmit_ValidationMakesNoStoreCall(t *testing.T) {
	svc, _, patients := newTestService(t)

	d := anaDraft(t)
	d.SetField("nome_crianca", "   ")
	_, err := svc.Submit(context.Background(), d)

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "nome_crianca" {
		t.Fatalf("expected nome_crianca validation error, got %v", err)
	}
	if verr.Message != "Nome da criança é obrigatório" {
		t.Errorf("message = %q", verr.Message)
	}
	if patients.calls != 0 {
		t.Errorf("store called %d times", patients.calls)
	}

	d = anaDraft(t)
	d.SetField("responsavel_nome", "")
	if _, err := svc.Submit(context.Background(), d); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if patients.calls != 0 {
		t.Errorf("store called %d times", patients.calls)
	}
}

func TestSubmit_StoreFailureKeepsDraft(t *testing.T) {
	svc, _, patients := newTestService(t)
	patients.createErr = errors.New("store down")

	d := anaDraft(t)
	if _, err := svc.Submit(context.Background(), d); err == nil {
		t.Fatal("expected error")
	}
	if d.Fields["nome_crianca"] != "Ana" || d.Fields["idade"] != "5" {
		t.Error("draft values must survive a failed submit")
	}
	if len(d.Consultations) != 1 {
		t.Error("draft consultations must survive a failed submit")
	}
}

func TestSubmit_ConsultationFailureRollsBackPatient(t *testing.T) {
	store := records.NewMemoryStore()
	svc := NewService(store.Patients(), &failingConsultations{store.Consultations()}, store, NewDraftStore(), zerolog.Nop())

	if _, err := svc.Submit(context.Background(), anaDraft(t)); err == nil {
		t.Fatal("expected error")
	}
	items, _ := store.Patients().List(context.Background(), "")
	if len(items) != 0 {
		t.Errorf("patient should be rolled back, found %d", len(items))
	}
}

func TestUpdate_ReplacesFieldsAndAppendsConsultations(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Submit(ctx, anaDraft(t))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	d := DraftFromPatient(res.Patient)
	d.SetField("cidade", "Olinda")
	d.SetField("sofreu_cirurgia", "false")
	d.AddConsultation(DraftConsultation{DataAtendimento: "2024-04-01", Peso: 19})

	upd, err := svc.Update(ctx, res.Patient.ID, d)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Patient.Cidade == nil || *upd.Patient.Cidade != "Olinda" {
		t.Errorf("cidade = %v", upd.Patient.Cidade)
	}
	if upd.Patient.SofreuCirurgia == nil || *upd.Patient.SofreuCirurgia {
		t.Error("explicit false must be stored")
	}
	if upd.Patient.Idade == nil || *upd.Patient.Idade != 5 {
		t.Error("untouched fields must be kept")
	}
	if upd.Redirect != "/visualizar-ficha?id="+res.Patient.ID.String() {
		t.Errorf("redirect = %q", upd.Redirect)
	}
	cons, _ := store.Consultations().List(ctx, "")
	if len(cons) != 2 {
		t.Errorf("expected 2 consultations, got %d", len(cons))
	}
}

func TestUpdate_UnknownPatient(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Update(context.Background(), uuid.New(), anaDraft(t))
	if !errors.Is(err, records.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddConsultation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Submit(ctx, anaDraft(t))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	c, err := svc.AddConsultation(ctx, res.Patient.ID, DraftConsultation{DataAtendimento: "2024-05-02", Peso: "20"})
	if err != nil {
		t.Fatalf("AddConsultation: %v", err)
	}
	if c.PacienteID != res.Patient.ID || c.ID == uuid.Nil {
		t.Error("consultation not linked or not stored")
	}

	if _, err := svc.AddConsultation(ctx, res.Patient.ID, DraftConsultation{DataAtendimento: "2024-05-02"}); !errors.Is(err, ErrIncompleteConsultation) {
		t.Errorf("expected ErrIncompleteConsultation, got %v", err)
	}
	if _, err := svc.AddConsultation(ctx, uuid.New(), DraftConsultation{DataAtendimento: "2024-05-02", Peso: "20"}); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEditDraft(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Submit(ctx, anaDraft(t))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	d, err := svc.EditDraft(ctx, res.Patient.ID)
	if err != nil {
		t.Fatalf("EditDraft: %v", err)
	}
	if _, err := svc.Drafts().Get(d.ID); err != nil {
		t.Errorf("edit draft should be stored: %v", err)
	}
	if d.Fields["nome_crianca"] != "Ana" {
		t.Errorf("nome_crianca = %#v", d.Fields["nome_crianca"])
	}
}
