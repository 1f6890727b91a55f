package intake

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tiopaulo/anamnese/internal/domain/chart"
	"github.com/tiopaulo/anamnese/internal/domain/records"
)

func TestNewDraft_BlankValues(t *testing.T) {
	d := NewDraft()
	if d.Fields["necessidade_especial"] != nil {
		t.Error("tri-state fields start unset")
	}
	if d.Fields["informacoes_verdadeiras"] != false {
		t.Error("attestation starts unchecked")
	}
	if teeth, ok := d.Fields["mapa_dental"].([]int); !ok || len(teeth) != 0 {
		t.Errorf("teeth start empty, got %#v", d.Fields["mapa_dental"])
	}
	if d.Fields["nome_crianca"] != "" {
		t.Error("text fields start empty")
	}
	if len(d.Consultations) != 0 {
		t.Error("no consultations expected")
	}
}

func TestDraft_SetField(t *testing.T) {
	d := NewDraft()
	if err := d.SetField("idade", "not a number"); err != nil {
		t.Fatalf("values are not checked before submit: %v", err)
	}
	if d.Fields["idade"] != "not a number" {
		t.Error("value not stored as given")
	}
	if err := d.SetField("peso_corporal", 1); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestDraft_SetFieldsIsAllOrNothing(t *testing.T) {
	d := NewDraft()
	err := d.SetFields(map[string]any{"nome_crianca": "Ana", "nope": 1})
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if d.Fields["nome_crianca"] != "" {
		t.Error("batch with an unknown name must not be applied")
	}
}

func TestDraft_AddConsultation(t *testing.T) {
	tests := []struct {
		name  string
		entry DraftConsultation
		ok    bool
	}{
		{"complete", DraftConsultation{DataAtendimento: "2024-03-01", Peso: "18.5"}, true},
		{"numeric weight", DraftConsultation{DataAtendimento: "2024-03-01", Peso: 18.5}, true},
		{"no date", DraftConsultation{Peso: "18.5"}, false},
		{"no weight", DraftConsultation{DataAtendimento: "2024-03-01"}, false},
		{"blank weight", DraftConsultation{DataAtendimento: "2024-03-01", Peso: "  "}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft()
			err := d.AddConsultation(tt.entry)
			if tt.ok {
				if err != nil || len(d.Consultations) != 1 {
					t.Fatalf("expected entry appended, err=%v len=%d", err, len(d.Consultations))
				}
				return
			}
			if !errors.Is(err, ErrIncompleteConsultation) {
				t.Errorf("expected ErrIncompleteConsultation, got %v", err)
			}
			if len(d.Consultations) != 0 {
				t.Error("incomplete entry must leave the draft unchanged")
			}
		})
	}
}

func TestDraftFromPatient(t *testing.T) {
	idade := 5.0
	no := false
	p := &records.Patient{
		ID:             uuid.New(),
		NomeCrianca:    "Ana",
		Idade:          &idade,
		SofreuCirurgia: &no,
		MapaDental:     []int{11, 55},
	}
	d := DraftFromPatient(p)
	if d.PatientID == nil || *d.PatientID != p.ID {
		t.Fatal("edit draft must point at the patient")
	}
	if d.Fields["idade"] != 5.0 {
		t.Errorf("idade = %#v", d.Fields["idade"])
	}
	if d.Fields["sofreu_cirurgia"] != false {
		t.Errorf("sofreu_cirurgia = %#v", d.Fields["sofreu_cirurgia"])
	}
	if d.Fields["necessidade_especial"] != nil {
		t.Error("unset answer must stay unset")
	}
}

func TestDraftStore(t *testing.T) {
	s := NewDraftStore()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	d := NewDraft()
	s.Put(d)
	if d.ID == uuid.Nil {
		t.Fatal("Put should assign an id")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d", s.Len())
	}

	got, err := s.Get(d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Fields["nome_crianca"] = "mutated"
	again, _ := s.Get(d.ID)
	if again.Fields["nome_crianca"] != "" {
		t.Error("Get must return a copy")
	}

	_, err = s.Update(d.ID, func(d *Draft) error {
		d.Fields["nome_crianca"] = "Ana"
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected fn error")
	}
	again, _ = s.Get(d.ID)
	if again.Fields["nome_crianca"] != "" {
		t.Error("failed update must not be saved")
	}

	updated, err := s.Update(d.ID, func(d *Draft) error {
		return d.SetField("nome_crianca", "Ana")
	})
	if err != nil || updated.Fields["nome_crianca"] != "Ana" {
		t.Fatalf("Update: %v", err)
	}

	if !s.Delete(d.ID) {
		t.Error("Delete should report success")
	}
	if _, err := s.Get(d.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("expected ErrDraftNotFound, got %v", err)
	}
	if s.Delete(d.ID) {
		t.Error("second Delete should report false")
	}
}

func TestDraft_ToggleTooth(t *testing.T) {
	d := NewDraft()
	d.Fields["mapa_dental"] = []any{float64(55)}

	for _, code := range []int{11, 21, 55} {
		if err := d.ToggleTooth(code); err != nil {
			t.Fatalf("ToggleTooth(%d): %v", code, err)
		}
	}
	if got := d.Fields["mapa_dental"]; !reflect.DeepEqual(got, []int{11, 21}) {
		t.Errorf("mapa_dental = %v, want [11 21]", got)
	}

	if err := d.ToggleTooth(19); !errors.Is(err, chart.ErrInvalidTooth) {
		t.Errorf("expected ErrInvalidTooth, got %v", err)
	}
	if got := d.Fields["mapa_dental"]; !reflect.DeepEqual(got, []int{11, 21}) {
		t.Errorf("invalid code changed the selection: %v", got)
	}
}
