package records

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidOrder = errors.New("invalid order field")

// Order is a parsed list ordering: one column, ascending unless Descending.
type Order struct {
	Column     string
	Descending bool
}

// DefaultOrder is used when no ordering is requested.
var DefaultOrder = Order{Column: "created_at"}

// ParseOrder turns "field" or "-field" into an Order. Only columns present
// in allowed are accepted so the result can be interpolated into SQL.
func ParseOrder(spec string, allowed map[string]bool) (Order, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultOrder, nil
	}
	o := Order{Column: spec}
	if strings.HasPrefix(spec, "-") {
		o.Column = strings.TrimPrefix(spec, "-")
		o.Descending = true
	}
	if !allowed[o.Column] {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidOrder, o.Column)
	}
	return o, nil
}

// SQL renders the ORDER BY clause body. id breaks ties so the result is stable.
func (o Order) SQL() string {
	dir := "ASC"
	if o.Descending {
		dir = "DESC"
	}
	return o.Column + " " + dir + ", id " + dir
}

// String renders the order back in "-field" notation.
func (o Order) String() string {
	if o.Descending {
		return "-" + o.Column
	}
	return o.Column
}

// PatientOrderColumns lists the columns a patient list may be sorted on.
var PatientOrderColumns = func() map[string]bool {
	m := map[string]bool{"id": true, "created_at": true, "updated_at": true}
	for _, f := range PatientFields {
		if f.Kind != KindTeeth {
			m[f.Name] = true
		}
	}
	return m
}()

// ConsultationOrderColumns lists the columns a consultation list may be sorted on.
var ConsultationOrderColumns = map[string]bool{
	"id":               true,
	"paciente_id":      true,
	"data_atendimento": true,
	"peso":             true,
	"created_at":       true,
	"updated_at":       true,
}
