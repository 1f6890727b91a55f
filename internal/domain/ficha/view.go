// Package ficha is the read-only detail view of one anamnesis record and
// its export to PDF.
package ficha

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/domain/chart"
	"github.com/tiopaulo/anamnese/internal/domain/records"
)

// Display strings shared by the page and the export.
const (
	Yes         = "SIM"
	No          = "NÃO"
	NotInformed = "Não informado"
)

const (
	SectionHistory    = "Histórico de Consultas"
	SectionSignatures = "Assinaturas"
	ChartTitle        = "MAPA DENTAL"

	SignatureGuardian     = "Assinatura do Responsável"
	SignatureProfessional = "Assinatura do Profissional"
)

// FormatTriState renders a tri-state answer. nil is "not informed", never
// the same as false.
func FormatTriState(b *bool) string {
	switch {
	case b == nil:
		return NotInformed
	case *b:
		return Yes
	default:
		return No
	}
}

// Row is one labelled value.
type Row struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
	Long  bool   `json:"long,omitempty"`
}

// HistoryRow is one consultation as displayed.
type HistoryRow struct {
	Date       string `json:"data_atendimento"`
	Weight     string `json:"peso"`
	Notes      string `json:"observacoes"`
	Procedures string `json:"procedimentos"`
}

// Section is one card of the detail view. ScreenOnly sections are left out
// of the export.
type Section struct {
	Title      string       `json:"title"`
	Rows       []Row        `json:"rows,omitempty"`
	Chart      []chart.Row  `json:"chart,omitempty"`
	History    []HistoryRow `json:"historico,omitempty"`
	Signatures []string     `json:"signatures,omitempty"`
	ScreenOnly bool         `json:"screen_only,omitempty"`
}

// View is the loaded detail page. Found is false when the id was missing,
// malformed or matched no record.
type View struct {
	Found         bool                    `json:"found"`
	Patient       *records.Patient        `json:"paciente,omitempty"`
	Consultations []*records.Consultation `json:"consultas,omitempty"`
	Sections      []Section               `json:"sections,omitempty"`
}

type Service struct {
	patients      records.PatientRepository
	consultations records.ConsultationRepository
	logger        zerolog.Logger
}

func NewService(patients records.PatientRepository, consultations records.ConsultationRepository, logger zerolog.Logger) *Service {
	return &Service{patients: patients, consultations: consultations, logger: logger}
}

// Load resolves rawID against the full patient list and gathers the
// consultations that reference it. An absent or unknown id is a not-found
// view, not an error; only store failures are returned.
func (s *Service) Load(ctx context.Context, rawID string) (*View, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return &View{}, nil
	}

	patients, err := s.patients.List(ctx, "")
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load pacientes")
		return nil, fmt.Errorf("load pacientes: %w", err)
	}
	var patient *records.Patient
	for _, p := range patients {
		if p.ID == id {
			patient = p
			break
		}
	}
	if patient == nil {
		return &View{}, nil
	}

	all, err := s.consultations.List(ctx, "data_atendimento")
	if err != nil {
		s.logger.Error().Err(err).Str("paciente_id", id.String()).Msg("failed to load consultas")
		return nil, fmt.Errorf("load consultas: %w", err)
	}
	cons := make([]*records.Consultation, 0)
	for _, c := range all {
		if c.PacienteID == id {
			cons = append(cons, c)
		}
	}

	return &View{
		Found:         true,
		Patient:       patient,
		Consultations: cons,
		Sections:      Sections(patient, cons),
	}, nil
}

// Sections builds the read-only content model: one section per catalog
// section, the consultation history and the signature lines.
func Sections(p *records.Patient, cons []*records.Consultation) []Section {
	out := make([]Section, 0, len(records.Sections)+2)
	for _, title := range records.Sections {
		sec := Section{Title: title}
		for _, f := range records.FieldsInSection(title) {
			if f.Kind == records.KindTeeth {
				sec.Title = ChartTitle
				sec.Chart = chart.NewReadOnly(p.MapaDental).Render()
				sec.Rows = append(sec.Rows, Row{Name: f.Name, Label: f.Label, Value: formatTeeth(p.MapaDental)})
				continue
			}
			value, ok := displayValue(p, f)
			if !ok {
				continue
			}
			sec.Rows = append(sec.Rows, Row{Name: f.Name, Label: f.Label, Value: value, Long: f.LongText})
		}
		out = append(out, sec)
	}

	history := Section{Title: SectionHistory, ScreenOnly: true}
	for _, c := range cons {
		history.History = append(history.History, HistoryRow{
			Date:       records.FormatDate(c.DataAtendimento),
			Weight:     formatWeight(c.Peso),
			Notes:      deref(c.Observacoes),
			Procedures: deref(c.Procedimentos),
		})
	}
	out = append(out, history)

	out = append(out, Section{
		Title:      SectionSignatures,
		Signatures: []string{SignatureGuardian, SignatureProfessional},
	})
	return out
}

// displayValue renders one field. Elaboration fields that were never filled
// are skipped.
func displayValue(p *records.Patient, f records.Field) (string, bool) {
	if f.Kind == records.KindTriState {
		return FormatTriState(p.TriState(f.Name)), true
	}

	v, _ := p.Value(f.Name)
	if v == nil {
		if f.DependsOn != "" {
			return "", false
		}
		return NotInformed, true
	}

	switch f.Kind {
	case records.KindNumber:
		n, _ := v.(float64)
		return records.FormatNumber(&n), true
	case records.KindDate:
		s, _ := v.(string)
		return records.FormatDate(s), true
	case records.KindBool:
		if b, _ := v.(bool); b {
			return Yes, true
		}
		return No, true
	}

	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		if f.DependsOn != "" {
			return "", false
		}
		return NotInformed, true
	}
	return s, true
}

func formatTeeth(codes []int) string {
	codes = chart.Normalize(codes)
	if len(codes) == 0 {
		return "Nenhum dente marcado"
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ", ")
}

func formatWeight(peso *float64) string {
	if peso == nil {
		return NotInformed
	}
	return records.FormatNumber(peso) + " kg"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
