package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tiopaulo/anamnese/internal/domain/chart"
	"github.com/tiopaulo/anamnese/internal/domain/records"
)

var ErrValidation = errors.New("validation failed")

// ValidationError names the field that blocked submission. Message is the
// text shown to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

const dateLayout = "2006-01-02"

// Validate runs the presence checks done before any store call.
func Validate(fields map[string]any) error {
	if strings.TrimSpace(textOf(fields["nome_crianca"])) == "" {
		return &ValidationError{Field: "nome_crianca", Message: "Nome da criança é obrigatório"}
	}
	if strings.TrimSpace(textOf(fields["responsavel_nome"])) == "" {
		return &ValidationError{Field: "responsavel_nome", Message: "Nome do responsável é obrigatório"}
	}
	return nil
}

// Normalize converts raw form values into the payload the record store
// expects: every catalog field present, nil for "no answer", never "".
// Normalizing an already normalized payload returns it unchanged.
func Normalize(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(records.PatientFields))
	for _, f := range records.PatientFields {
		raw := fields[f.Name]
		switch f.Kind {
		case records.KindText:
			if f.Required {
				out[f.Name] = textOf(raw)
			} else {
				out[f.Name] = optionalText(raw)
			}
		case records.KindNumber:
			out[f.Name] = number(raw)
		case records.KindDate:
			d, err := date(raw)
			if err != nil {
				return nil, &ValidationError{Field: f.Name, Message: fmt.Sprintf("%s inválida", f.Label)}
			}
			out[f.Name] = d
		case records.KindTriState:
			out[f.Name] = triState(raw)
		case records.KindBool:
			out[f.Name] = checkbox(raw)
		case records.KindTeeth:
			out[f.Name] = teeth(raw)
		}
	}
	return out, nil
}

// NormalizeConsultation builds the record for a draft visit of patientID.
// Peso becomes a number, or nil when it is not a positive number.
func NormalizeConsultation(e DraftConsultation, patientID uuid.UUID) (*records.Consultation, error) {
	d, err := date(e.DataAtendimento)
	if err != nil || d == nil {
		return nil, &ValidationError{Field: "data_atendimento", Message: "Data do atendimento inválida"}
	}
	c := &records.Consultation{
		PacienteID:      patientID,
		DataAtendimento: *d,
		Observacoes:     optionalText(e.Observacoes),
		Procedimentos:   optionalText(e.Procedimentos),
	}
	if w := number(e.Peso); w != nil && *w != 0 {
		c.Peso = w
	}
	return c, nil
}

func textOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case []string:
		if len(x) == 0 {
			return ""
		}
		return x[0]
	}
	return fmt.Sprint(v)
}

func optionalText(v any) *string {
	s := textOf(v)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func number(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case *float64:
		if x == nil {
			return nil
		}
		f = *x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		s := strings.TrimSpace(textOf(v))
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func date(v any) (*string, error) {
	s := strings.TrimSpace(textOf(v))
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	out := t.Format(dateLayout)
	return &out, nil
}

// triState keeps true, false and unset apart. Anything unrecognised is
// unset, never false.
func triState(v any) *bool {
	yes, no := true, false
	switch x := v.(type) {
	case bool:
		return &x
	case *bool:
		if x == nil {
			return nil
		}
		b := *x
		return &b
	case nil:
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(textOf(v))) {
	case "true", "sim", "s", "yes", "1":
		return &yes
	case "false", "nao", "não", "n", "no", "0":
		return &no
	}
	return nil
}

func checkbox(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case nil:
		return false
	}
	switch strings.ToLower(strings.TrimSpace(textOf(v))) {
	case "on", "true", "1", "sim":
		return true
	}
	return false
}

// teeth coerces the chart selection to a sorted array of valid codes; a
// non-array becomes empty.
func teeth(v any) []int {
	var codes []int
	switch x := v.(type) {
	case []int:
		codes = x
	case []any:
		for _, item := range x {
			if n := number(item); n != nil && *n == math.Trunc(*n) {
				codes = append(codes, int(*n))
			}
		}
	case []string:
		for _, item := range x {
			if n, err := strconv.Atoi(strings.TrimSpace(item)); err == nil {
				codes = append(codes, n)
			}
		}
	}
	return chart.Normalize(codes)
}
