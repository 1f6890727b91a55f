// Package dashboard serves the patient list and the consultation list, each
// with a search box and a few headline counts.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/domain/records"
)

// MissingPatientName labels a consultation whose patient is gone.
const MissingPatientName = "Paciente não encontrado"

// newestFirst is the order both lists are fetched in.
const newestFirst = "-created_at"

type PatientStats struct {
	Total      int `json:"total"`
	ThisMonth  int `json:"este_mes"`
	AverageAge int `json:"media_idade"`
}

type PatientListing struct {
	Query    string             `json:"query"`
	Patients []*records.Patient `json:"pacientes"`
	Stats    PatientStats       `json:"stats"`
}

type ConsultationStats struct {
	Total          int `json:"total"`
	ThisMonth      int `json:"este_mes"`
	ActivePatients int `json:"pacientes_ativos"`
}

// ConsultationRow is a consultation with its patient's name resolved.
type ConsultationRow struct {
	*records.Consultation
	PatientName  string `json:"paciente_nome"`
	PatientFound bool   `json:"paciente_encontrado"`
}

type ConsultationListing struct {
	Query         string            `json:"query"`
	Consultations []ConsultationRow `json:"consultas"`
	Stats         ConsultationStats `json:"stats"`
}

type Service struct {
	patients      records.PatientRepository
	consultations records.ConsultationRepository
	now           func() time.Time
	logger        zerolog.Logger
}

func NewService(patients records.PatientRepository, consultations records.ConsultationRepository, logger zerolog.Logger) *Service {
	return &Service{
		patients:      patients,
		consultations: consultations,
		now:           time.Now,
		logger:        logger,
	}
}

// SetClock replaces the time source behind the this-month counts.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// PatientList fetches every patient, newest first, and filters by query.
// Stats always describe the full set.
func (s *Service) PatientList(ctx context.Context, query string) (*PatientListing, error) {
	items, err := s.patients.List(ctx, newestFirst)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load pacientes")
		return nil, fmt.Errorf("load pacientes: %w", err)
	}
	return &PatientListing{
		Query:    query,
		Patients: FilterPatients(items, query),
		Stats:    ComputePatientStats(items, s.now()),
	}, nil
}

// ConsultationList fetches every consultation, newest first, with its
// patient's name, and filters on that name.
func (s *Service) ConsultationList(ctx context.Context, query string) (*ConsultationListing, error) {
	cons, err := s.consultations.List(ctx, newestFirst)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load consultas")
		return nil, fmt.Errorf("load consultas: %w", err)
	}
	patients, err := s.patients.List(ctx, newestFirst)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load pacientes")
		return nil, fmt.Errorf("load pacientes: %w", err)
	}

	rows := JoinConsultations(cons, patients)
	return &ConsultationListing{
		Query:         query,
		Consultations: FilterConsultations(rows, query),
		Stats:         ComputeConsultationStats(cons, s.now()),
	}, nil
}

// FilterPatients keeps the patients whose child, mother or father name
// contains query, ignoring case. An empty query keeps everything.
func FilterPatients(items []*records.Patient, query string) []*records.Patient {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	out := make([]*records.Patient, 0, len(items))
	for _, p := range items {
		if contains(p.NomeCrianca, q) || containsPtr(p.NomeMae, q) || containsPtr(p.NomePai, q) {
			out = append(out, p)
		}
	}
	return out
}

// JoinConsultations resolves patient names through a map built once.
func JoinConsultations(cons []*records.Consultation, patients []*records.Patient) []ConsultationRow {
	names := make(map[uuid.UUID]string, len(patients))
	for _, p := range patients {
		names[p.ID] = p.NomeCrianca
	}
	rows := make([]ConsultationRow, 0, len(cons))
	for _, c := range cons {
		name, ok := names[c.PacienteID]
		if !ok || name == "" {
			name = MissingPatientName
		}
		rows = append(rows, ConsultationRow{Consultation: c, PatientName: name, PatientFound: ok})
	}
	return rows
}

func FilterConsultations(rows []ConsultationRow, query string) []ConsultationRow {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return rows
	}
	out := make([]ConsultationRow, 0, len(rows))
	for _, r := range rows {
		if contains(r.PatientName, q) {
			out = append(out, r)
		}
	}
	return out
}

// ComputePatientStats counts all patients, the ones created in now's
// calendar month, and the rounded mean age with a missing age counted as 0.
func ComputePatientStats(items []*records.Patient, now time.Time) PatientStats {
	stats := PatientStats{Total: len(items)}
	if len(items) == 0 {
		return stats
	}
	var sum float64
	for _, p := range items {
		if sameMonth(p.CreatedAt, now) {
			stats.ThisMonth++
		}
		if p.Idade != nil {
			sum += *p.Idade
		}
	}
	stats.AverageAge = int(math.Round(sum / float64(len(items))))
	return stats
}

func ComputeConsultationStats(cons []*records.Consultation, now time.Time) ConsultationStats {
	stats := ConsultationStats{Total: len(cons)}
	active := make(map[uuid.UUID]struct{}, len(cons))
	for _, c := range cons {
		if sameMonth(c.CreatedAt, now) {
			stats.ThisMonth++
		}
		active[c.PacienteID] = struct{}{}
	}
	stats.ActivePatients = len(active)
	return stats
}

func sameMonth(t, now time.Time) bool {
	t = t.In(now.Location())
	return t.Year() == now.Year() && t.Month() == now.Month()
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}

func containsPtr(s *string, lowerQuery string) bool {
	return s != nil && contains(*s, lowerQuery)
}
