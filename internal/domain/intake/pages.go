package intake

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/domain/chart"
	"github.com/tiopaulo/anamnese/internal/domain/records"
	"github.com/tiopaulo/anamnese/internal/platform/nav"
)

const formBody = `{{define "content"}}
<div class="card"><h2>{{.Title}}</h2><p>Preencha as informações do paciente.</p></div>
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
{{if .Warning}}<div class="warning">{{.Warning}}</div>{{end}}
{{if .Sections}}<form method="post" action="{{.Action}}">
{{range .Sections}}<div class="card">
<h3>{{.Title}}</h3>
{{range .Fields}}<p><label>{{.Label}}{{if .Required}} *{{end}}<br>
{{if eq .Kind "tristate"}}<select name="{{.Name}}">
<option value=""{{if eq .Value ""}} selected{{end}}>Não informado</option>
<option value="true"{{if eq .Value "true"}} selected{{end}}>Sim</option>
<option value="false"{{if eq .Value "false"}} selected{{end}}>Não</option>
</select>
{{else if eq .Kind "bool"}}<input type="checkbox" name="{{.Name}}"{{if .Checked}} checked{{end}}>
{{else if eq .Kind "date"}}<input type="date" name="{{.Name}}" value="{{.Value}}">
{{else if eq .Kind "number"}}<input type="number" step="any" name="{{.Name}}" value="{{.Value}}">
{{else if .LongText}}<textarea name="{{.Name}}" rows="3">{{.Value}}</textarea>
{{else}}<input type="text" name="{{.Name}}" value="{{.Value}}">{{end}}
</label></p>{{end}}
{{if .Chart}}<table>{{range .Chart}}<tr><th>{{.Name}}</th>{{range .Cells}}<td><label><input type="checkbox" name="mapa_dental" value="{{.Code}}"{{if .Selected}} checked{{end}}> {{.Code}}</label></td>{{end}}</tr>{{end}}</table>{{end}}
</div>{{end}}
<div class="card">
<h3>Histórico de Consultas</h3>
<table>
<tr><th>Data do Atendimento</th><th>Peso (kg)</th><th>Observações</th><th>Procedimentos</th></tr>
{{range .Consultations}}<tr>
<td><input type="date" name="consulta_data_atendimento" value="{{.DataAtendimento}}"></td>
<td><input type="number" step="any" name="consulta_peso" value="{{.Peso}}"></td>
<td><input type="text" name="consulta_observacoes" value="{{.Observacoes}}"></td>
<td><input type="text" name="consulta_procedimentos" value="{{.Procedimentos}}"></td>
</tr>{{end}}
</table>
</div>
<p><button type="submit">Salvar Ficha</button> <a href="{{.Cancel}}">Cancelar</a></p>
</form>{{else}}<p><a href="{{.Cancel}}">Voltar</a></p>{{end}}
{{end}}`

type formField struct {
	Name     string
	Label    string
	Kind     string
	Value    string
	Checked  bool
	Required bool
	LongText bool
}

type formSection struct {
	Title  string
	Fields []formField
	Chart  []chart.Row
}

type formRow struct {
	DataAtendimento string
	Peso            string
	Observacoes     string
	Procedimentos   string
}

type formPage struct {
	Title         string
	Action        string
	Cancel        string
	Error         string
	Warning       string
	Sections      []formSection
	Consultations []formRow
}

// Pages serves the NovaFicha and EditarFicha HTML forms.
type Pages struct {
	svc    *Service
	shell  *nav.Shell
	create *nav.View
	edit   *nav.View
	logger zerolog.Logger
}

func NewPages(svc *Service, shell *nav.Shell, logger zerolog.Logger) *Pages {
	return &Pages{
		svc:    svc,
		shell:  shell,
		create: shell.MustView(nav.NovaFicha, formBody, nil),
		edit:   shell.MustView(nav.EditarFicha, formBody, nil),
		logger: logger,
	}
}

func (p *Pages) RegisterRoutes(e *echo.Echo) {
	e.GET(nav.NovaFicha.Path(), p.NewForm)
	e.POST(nav.NovaFicha.Path(), p.SubmitNew)
	e.GET(nav.EditarFicha.Path(), p.EditForm)
	e.POST(nav.EditarFicha.Path(), p.SubmitEdit)
}

func (p *Pages) NewForm(c echo.Context) error {
	return p.renderForm(c, http.StatusOK, p.create, NewDraft(), nil, "", "")
}

func (p *Pages) SubmitNew(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	d, rows, incomplete := draftFromForm(form)
	if incomplete {
		return p.renderForm(c, http.StatusUnprocessableEntity, p.create, d, rows, "", msgIncomplete)
	}
	res, err := p.svc.Submit(c.Request().Context(), d)
	if err != nil {
		return p.renderForm(c, statusFor(err), p.create, d, rows, errorText(err), "")
	}
	return c.Redirect(http.StatusSeeOther, res.Redirect)
}

func (p *Pages) EditForm(c echo.Context) error {
	id, err := uuid.Parse(c.QueryParam("id"))
	if err != nil {
		return p.renderMissing(c)
	}
	rec, err := p.svc.patients.GetByID(c.Request().Context(), id)
	if errors.Is(err, records.ErrNotFound) {
		return p.renderMissing(c)
	}
	if err != nil {
		p.logger.Error().Err(err).Str("paciente_id", id.String()).Msg("failed to load ficha for edit")
		return p.renderForm(c, http.StatusBadGateway, p.edit, NewDraft(), nil, "Erro ao carregar a ficha. Tente novamente.", "")
	}
	return p.renderForm(c, http.StatusOK, p.edit, DraftFromPatient(rec), nil, "", "")
}

func (p *Pages) SubmitEdit(c echo.Context) error {
	id, err := uuid.Parse(c.QueryParam("id"))
	if err != nil {
		return p.renderMissing(c)
	}
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	d, rows, incomplete := draftFromForm(form)
	d.PatientID = &id
	if incomplete {
		return p.renderForm(c, http.StatusUnprocessableEntity, p.edit, d, rows, "", msgIncomplete)
	}
	res, err := p.svc.Update(c.Request().Context(), id, d)
	if errors.Is(err, records.ErrNotFound) {
		return p.renderMissing(c)
	}
	if err != nil {
		return p.renderForm(c, statusFor(err), p.edit, d, rows, errorText(err), "")
	}
	return c.Redirect(http.StatusSeeOther, res.Redirect)
}

func (p *Pages) renderMissing(c echo.Context) error {
	page := formPage{Title: "Editar Ficha", Error: "Paciente não encontrado", Cancel: nav.Dashboard.Path()}
	return p.shell.Render(c, http.StatusNotFound, p.edit, page.Title, page)
}

func (p *Pages) renderForm(c echo.Context, status int, v *nav.View, d *Draft, rows []formRow, errMsg, warning string) error {
	page := formPage{
		Title:         "Nova Ficha de Anamnese",
		Action:        nav.NovaFicha.Path(),
		Cancel:        nav.Dashboard.Path(),
		Error:         errMsg,
		Warning:       warning,
		Sections:      formSections(d),
		Consultations: append(rows, formRow{}),
	}
	if d.PatientID != nil {
		id := d.PatientID.String()
		page.Title = "Editar Ficha de Anamnese"
		page.Action = nav.EditarFicha.WithID(id)
		page.Cancel = nav.VisualizarFicha.WithID(id)
	}
	return p.shell.Render(c, status, v, page.Title, page)
}

func statusFor(err error) int {
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorText(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return msgSaveFailed
}

// draftFromForm reads a posted form. Visit rows left entirely blank are
// ignored; a partly filled row flags the form as incomplete.
func draftFromForm(form url.Values) (*Draft, []formRow, bool) {
	d := NewDraft()
	for _, f := range records.PatientFields {
		switch f.Kind {
		case records.KindTeeth:
			d.Fields[f.Name] = form[f.Name]
		default:
			d.Fields[f.Name] = form.Get(f.Name)
		}
	}

	var rows []formRow
	incomplete := false
	dates := form["consulta_data_atendimento"]
	for i := range dates {
		row := formRow{
			DataAtendimento: dates[i],
			Peso:            at(form["consulta_peso"], i),
			Observacoes:     at(form["consulta_observacoes"], i),
			Procedimentos:   at(form["consulta_procedimentos"], i),
		}
		if strings.TrimSpace(row.DataAtendimento+row.Peso+row.Observacoes+row.Procedimentos) == "" {
			continue
		}
		rows = append(rows, row)
		err := d.AddConsultation(DraftConsultation{
			DataAtendimento: row.DataAtendimento,
			Peso:            row.Peso,
			Observacoes:     row.Observacoes,
			Procedimentos:   row.Procedimentos,
		})
		if err != nil {
			incomplete = true
		}
	}
	return d, rows, incomplete
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// formSections lays the draft values out by catalog section.
func formSections(d *Draft) []formSection {
	out := make([]formSection, 0, len(records.Sections))
	for _, title := range records.Sections {
		sec := formSection{Title: title}
		for _, f := range records.FieldsInSection(title) {
			raw := d.Fields[f.Name]
			if f.Kind == records.KindTeeth {
				sec.Chart = chart.NewReadOnly(teeth(raw)).Render()
				continue
			}
			sec.Fields = append(sec.Fields, formField{
				Name:     f.Name,
				Label:    f.Label,
				Kind:     f.Kind.String(),
				Value:    displayValue(f.Kind, raw),
				Checked:  f.Kind == records.KindBool && checkbox(raw),
				Required: f.Required,
				LongText: f.LongText,
			})
		}
		out = append(out, sec)
	}
	return out
}

func displayValue(kind records.FieldKind, v any) string {
	switch kind {
	case records.KindTriState:
		b := triState(v)
		if b == nil {
			return ""
		}
		return strconv.FormatBool(*b)
	case records.KindNumber:
		if n := number(v); n != nil {
			return strconv.FormatFloat(*n, 'f', -1, 64)
		}
		return textOf(v)
	}
	return textOf(v)
}
