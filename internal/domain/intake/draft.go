package intake

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tiopaulo/anamnese/internal/domain/chart"
	"github.com/tiopaulo/anamnese/internal/domain/records"
)

var (
	ErrUnknownField           = errors.New("unknown field")
	ErrIncompleteConsultation = errors.New("consultation needs both data_atendimento and peso")
	ErrDraftNotFound          = errors.New("draft not found")
)

// DraftConsultation is a follow-up visit typed into the form but not yet
// persisted. Peso keeps whatever was entered (string or number).
type DraftConsultation struct {
	DataAtendimento string `json:"data_atendimento"`
	Peso            any    `json:"peso"`
	Observacoes     string `json:"observacoes,omitempty"`
	Procedimentos   string `json:"procedimentos,omitempty"`
}

// Draft is the in-progress anamnesis. Fields holds raw values keyed by
// catalog name; nothing is validated until submission.
type Draft struct {
	ID            uuid.UUID           `json:"id"`
	PatientID     *uuid.UUID          `json:"paciente_id,omitempty"`
	Fields        map[string]any      `json:"fields"`
	Consultations []DraftConsultation `json:"consultas"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewDraft returns a draft with the blank form values: empty text, unset
// tri-state answers, no teeth and no attestation.
func NewDraft() *Draft {
	fields := make(map[string]any, len(records.PatientFields))
	for _, f := range records.PatientFields {
		switch f.Kind {
		case records.KindTriState:
			fields[f.Name] = nil
		case records.KindBool:
			fields[f.Name] = false
		case records.KindTeeth:
			fields[f.Name] = []int{}
		default:
			fields[f.Name] = ""
		}
	}
	return &Draft{Fields: fields, Consultations: []DraftConsultation{}}
}

// DraftFromPatient seeds an edit draft with a stored record.
func DraftFromPatient(p *records.Patient) *Draft {
	d := NewDraft()
	for _, f := range records.PatientFields {
		v, _ := p.Value(f.Name)
		d.Fields[f.Name] = v
	}
	id := p.ID
	d.PatientID = &id
	return d
}

// SetField replaces one field. Only the name is checked.
func (d *Draft) SetField(name string, value any) error {
	if _, ok := records.FieldByName(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if d.Fields == nil {
		d.Fields = make(map[string]any)
	}
	d.Fields[name] = value
	return nil
}

// SetFields applies several SetField calls; it stops at the first unknown name
// without applying any of the batch.
func (d *Draft) SetFields(values map[string]any) error {
	for name := range values {
		if _, ok := records.FieldByName(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}
	for name, v := range values {
		if err := d.SetField(name, v); err != nil {
			return err
		}
	}
	return nil
}

// ToggleTooth flips one tooth on the dental chart; the chart writes the full
// selection back into mapa_dental.
func (d *Draft) ToggleTooth(code int) error {
	var setErr error
	c := chart.New(teeth(d.Fields["mapa_dental"]), func(sel []int) {
		setErr = d.SetField("mapa_dental", sel)
	})
	if err := c.Toggle(code); err != nil {
		return err
	}
	return setErr
}

// AddConsultation appends e when it has both a date and a weight. An
// incomplete entry leaves the draft unchanged and returns
// ErrIncompleteConsultation so the form can warn about it.
func (d *Draft) AddConsultation(e DraftConsultation) error {
	if strings.TrimSpace(e.DataAtendimento) == "" || blank(e.Peso) {
		return ErrIncompleteConsultation
	}
	d.Consultations = append(d.Consultations, e)
	return nil
}

func blank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}
