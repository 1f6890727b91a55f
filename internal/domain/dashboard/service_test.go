package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/domain/records"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func samplePatients() []*records.Patient {
	return []*records.Patient{
		{ID: uuid.New(), NomeCrianca: "Ana Souza", NomeMae: strPtr("Maria"), Idade: floatPtr(5), CreatedAt: at(2024, 3, 2)},
		{ID: uuid.New(), NomeCrianca: "Bruno", NomePai: strPtr("José Lima"), Idade: floatPtr(8), CreatedAt: at(2024, 3, 20)},
		{ID: uuid.New(), NomeCrianca: "Carla", CreatedAt: at(2024, 2, 28)},
		{ID: uuid.New(), NomeCrianca: "Davi", Idade: floatPtr(4), CreatedAt: at(2023, 3, 10)},
	}
}

func TestFilterPatients(t *testing.T) {
	items := samplePatients()
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Ana Souza", "Bruno", "Carla", "Davi"}},
		{"ANA", []string{"Ana Souza"}},
		{"maria", []string{"Ana Souza"}},
		{"lima", []string{"Bruno"}},
		{"  ", []string{"Ana Souza", "Bruno", "Carla", "Davi"}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := FilterPatients(items, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d patients, want %d", len(got), len(tt.want))
			}
			for i, p := range got {
				if p.NomeCrianca != tt.want[i] {
					t.Errorf("position %d: got %q, want %q", i, p.NomeCrianca, tt.want[i])
				}
			}
		})
	}
}

func TestFilterPatients_IsSubsetMatchingQuery(t *testing.T) {
	items := samplePatients()
	for _, q := range []string{"a", "o", "br", "souza", "é"} {
		got := FilterPatients(items, q)
		if len(got) > len(items) {
			t.Fatalf("%q: filter grew the list", q)
		}
		for _, p := range got {
			if !contains(p.NomeCrianca, q) && !containsPtr(p.NomeMae, q) && !containsPtr(p.NomePai, q) {
				t.Errorf("%q: %q does not match", q, p.NomeCrianca)
			}
		}
	}
}

func TestComputePatientStats(t *testing.T) {
	stats := ComputePatientStats(samplePatients(), at(2024, 3, 25))
	if stats.Total != 4 {
		t.Errorf("Total = %d", stats.Total)
	}
	if stats.ThisMonth != 2 {
		t.Errorf("ThisMonth = %d, want 2 (same month of a different year excluded)", stats.ThisMonth)
	}
	// (5 + 8 + 0 + 4) / 4 = 4.25
	if stats.AverageAge != 4 {
		t.Errorf("AverageAge = %d, want 4", stats.AverageAge)
	}

	empty := ComputePatientStats(nil, at(2024, 3, 25))
	if empty.AverageAge != 0 || empty.Total != 0 {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestComputePatientStats_RoundsHalfUp(t *testing.T) {
	items := []*records.Patient{{Idade: floatPtr(5)}, {Idade: floatPtr(6)}}
	if got := ComputePatientStats(items, at(2024, 1, 1)).AverageAge; got != 6 {
		t.Errorf("AverageAge = %d, want 6", got)
	}
}

func TestJoinConsultations(t *testing.T) {
	patients := samplePatients()
	orphan := uuid.New()
	cons := []*records.Consultation{
		{ID: uuid.New(), PacienteID: patients[0].ID, CreatedAt: at(2024, 3, 3)},
		{ID: uuid.New(), PacienteID: orphan, CreatedAt: at(2024, 3, 4)},
		{ID: uuid.New(), PacienteID: patients[0].ID, CreatedAt: at(2024, 1, 4)},
	}
	rows := JoinConsultations(cons, patients)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].PatientName != "Ana Souza" || !rows[0].PatientFound {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].PatientName != MissingPatientName || rows[1].PatientFound {
		t.Errorf("orphan row = %+v", rows[1])
	}

	filtered := FilterConsultations(rows, "souza")
	if len(filtered) != 2 {
		t.Errorf("expected 2 rows for souza, got %d", len(filtered))
	}

	stats := ComputeConsultationStats(cons, at(2024, 3, 30))
	if stats.Total != 3 || stats.ThisMonth != 2 || stats.ActivePatients != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

type failingPatients struct {
	records.PatientRepository
}

func (failingPatients) List(ctx context.Context, orderBy string) ([]*records.Patient, error) {
	return nil, errors.New("connection refused")
}

func TestPatientList_NewestFirst(t *testing.T) {
	store := records.NewMemoryStore()
	tick := at(2024, 3, 1)
	store.SetClock(func() time.Time {
		tick = tick.Add(time.Hour)
		return tick
	})
	ctx := context.Background()
	for _, name := range []string{"Ana", "Bruno", "Carla"} {
		if err := store.Patients().Create(ctx, &records.Patient{NomeCrianca: name, ResponsavelNome: "R"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	svc := NewService(store.Patients(), store.Consultations(), zerolog.Nop())
	svc.SetClock(func() time.Time { return at(2024, 3, 15) })
	listing, err := svc.PatientList(ctx, "")
	if err != nil {
		t.Fatalf("PatientList: %v", err)
	}
	if listing.Patients[0].NomeCrianca != "Carla" || listing.Patients[2].NomeCrianca != "Ana" {
		t.Error("expected newest first")
	}
	if listing.Stats.ThisMonth != 3 {
		t.Errorf("ThisMonth = %d", listing.Stats.ThisMonth)
	}
}

func TestLists_SurfaceStoreFailure(t *testing.T) {
	store := records.NewMemoryStore()
	svc := NewService(failingPatients{}, store.Consultations(), zerolog.Nop())

	if _, err := svc.PatientList(context.Background(), ""); err == nil {
		t.Error("expected PatientList error")
	}
	if _, err := svc.ConsultationList(context.Background(), ""); err == nil {
		t.Error("expected ConsultationList error")
	}
}
