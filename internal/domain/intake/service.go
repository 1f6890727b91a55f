package intake

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/domain/records"
	"github.com/tiopaulo/anamnese/internal/platform/nav"
)

// Result is a successful submission.
type Result struct {
	Patient       *records.Patient        `json:"paciente"`
	Consultations []*records.Consultation `json:"consultas"`
	Redirect      string                  `json:"redirect"`
}

type Service struct {
	patients      records.PatientRepository
	consultations records.ConsultationRepository
	tx            records.Transactor
	drafts        *DraftStore
	logger        zerolog.Logger
}

func NewService(patients records.PatientRepository, consultations records.ConsultationRepository, tx records.Transactor, drafts *DraftStore, logger zerolog.Logger) *Service {
	return &Service{
		patients:      patients,
		consultations: consultations,
		tx:            tx,
		drafts:        drafts,
		logger:        logger,
	}
}

func (s *Service) Drafts() *DraftStore {
	return s.drafts
}

// Prepare validates and normalizes a draft without touching the store.
func Prepare(d *Draft) (*records.Patient, map[string]any, error) {
	if err := Validate(d.Fields); err != nil {
		return nil, nil, err
	}
	normalized, err := Normalize(d.Fields)
	if err != nil {
		return nil, nil, err
	}
	p := &records.Patient{}
	if err := records.ApplyPatientFields(p, normalized); err != nil {
		return nil, nil, fmt.Errorf("build paciente: %w", err)
	}
	return p, normalized, nil
}

// Submit persists a new patient and its draft consultations atomically. A
// validation failure makes no store call; a store failure leaves d as it was.
func (s *Service) Submit(ctx context.Context, d *Draft) (*Result, error) {
	p, _, err := Prepare(d)
	if err != nil {
		return nil, err
	}
	consultations, err := buildConsultations(d.Consultations)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		for _, c := range consultations {
			c.PacienteID = p.ID
		}
		return s.consultations.BulkCreate(ctx, consultations)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("nome_crianca", p.NomeCrianca).Msg("failed to save ficha")
		return nil, fmt.Errorf("save ficha: %w", err)
	}

	s.logger.Info().
		Str("paciente_id", p.ID.String()).
		Int("consultas", len(consultations)).
		Msg("ficha saved")
	return &Result{Patient: p, Consultations: consultations, Redirect: nav.Dashboard.Path()}, nil
}

// Update replaces every form field of an existing patient (the edit flow)
// and appends the draft consultations to it.
func (s *Service) Update(ctx context.Context, id uuid.UUID, d *Draft) (*Result, error) {
	_, normalized, err := Prepare(d)
	if err != nil {
		return nil, err
	}
	consultations, err := buildConsultations(d.Consultations)
	if err != nil {
		return nil, err
	}

	var p *records.Patient
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		updated, err := s.patients.Update(ctx, id, normalized)
		if err != nil {
			return err
		}
		p = updated
		for _, c := range consultations {
			c.PacienteID = id
		}
		return s.consultations.BulkCreate(ctx, consultations)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("paciente_id", id.String()).Msg("failed to update ficha")
		return nil, fmt.Errorf("update ficha: %w", err)
	}
	return &Result{Patient: p, Consultations: consultations, Redirect: nav.VisualizarFicha.WithID(id.String())}, nil
}

// AddConsultation records a visit for an existing patient.
func (s *Service) AddConsultation(ctx context.Context, patientID uuid.UUID, e DraftConsultation) (*records.Consultation, error) {
	var d Draft
	if err := d.AddConsultation(e); err != nil {
		return nil, err
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	c, err := NormalizeConsultation(e, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.consultations.Create(ctx, c); err != nil {
		s.logger.Error().Err(err).Str("paciente_id", patientID.String()).Msg("failed to save consulta")
		return nil, fmt.Errorf("save consulta: %w", err)
	}
	return c, nil
}

// EditDraft loads a stored patient into a new draft.
func (s *Service) EditDraft(ctx context.Context, id uuid.UUID) (*Draft, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := DraftFromPatient(p)
	s.drafts.Put(d)
	return d, nil
}

// buildConsultations normalizes draft visits before any store call. The
// patient id is filled in once the patient exists.
func buildConsultations(entries []DraftConsultation) ([]*records.Consultation, error) {
	out := make([]*records.Consultation, 0, len(entries))
	for _, e := range entries {
		c, err := NormalizeConsultation(e, uuid.Nil)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
