package records

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

var ErrNotFound = errors.New("record not found")

// PatientRepository is the record store for the pacientes table. List
// returns every row with no pagination; orderBy is "field" or "-field".
type PatientRepository interface {
	List(ctx context.Context, orderBy string) ([]*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*Patient, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

// ConsultationRepository is the record store for the consultas table.
type ConsultationRepository interface {
	List(ctx context.Context, orderBy string) ([]*Consultation, error)
	Create(ctx context.Context, c *Consultation) error
	BulkCreate(ctx context.Context, cs []*Consultation) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*Consultation, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
}

// Transactor runs fn atomically against the record store.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ApplyPatientFields writes a partial record onto p. Keys are catalog field
// names; a nil value clears the field. Unknown keys are an error.
func ApplyPatientFields(p *Patient, fields map[string]any) error {
	for k := range fields {
		if _, ok := fieldsByName[k]; !ok {
			return fmt.Errorf("unknown patient field %q", k)
		}
	}
	return decodeInto(p, fields)
}

var consultationFields = map[string]bool{
	"paciente_id":      true,
	"data_atendimento": true,
	"peso":             true,
	"observacoes":      true,
	"procedimentos":    true,
}

// ApplyConsultationFields writes a partial record onto c.
func ApplyConsultationFields(c *Consultation, fields map[string]any) error {
	for k := range fields {
		if !consultationFields[k] {
			return fmt.Errorf("unknown consultation field %q", k)
		}
	}
	return decodeInto(c, fields)
}

func decodeInto(out any, fields map[string]any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		ZeroFields: true,
		Result:     out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToUUIDHook,
		),
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(fields); err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	return nil
}

func stringToUUIDHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(uuid.UUID{}) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return uuid.Parse(v)
	case uuid.UUID:
		return v, nil
	}
	return data, nil
}
