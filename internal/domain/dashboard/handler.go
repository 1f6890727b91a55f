package dashboard

import (
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tiopaulo/anamnese/internal/domain/records"
	"github.com/tiopaulo/anamnese/internal/platform/nav"
)

const (
	msgPatientsFailed      = "Erro ao carregar pacientes."
	msgConsultationsFailed = "Erro ao carregar dados."
)

var pageFuncs = template.FuncMap{
	"deref":   deref,
	"date":    records.FormatDate,
	"number":  records.FormatNumber,
	"created": func(t time.Time) string { return t.Format(records.DisplayDateLayout) },
	"viewURL": func(id uuid.UUID) string { return nav.VisualizarFicha.WithID(id.String()) },
	"editURL": func(id uuid.UUID) string { return nav.EditarFicha.WithID(id.String()) },
	"excerpt": func(s *string) string {
		if s == nil {
			return ""
		}
		r := []rune(*s)
		if len(r) > 50 {
			return string(r[:50]) + "..."
		}
		return *s
	},
}

const patientsBody = `{{define "content"}}
<div class="card"><h2>Dashboard</h2><p>Gerencie as fichas de anamnese</p>
<p><a href="{{pathFor "NovaFicha"}}">Nova Ficha</a></p></div>
{{if .Error}}<div class="error">{{.Error}} <a href="{{.Retry}}">Tentar novamente</a></div>{{else}}
<div class="card">
<p>Total de Pacientes: <strong>{{.Listing.Stats.Total}}</strong></p>
<p>Fichas Este Mês: <strong>{{.Listing.Stats.ThisMonth}}</strong></p>
<p>Média de Idade: <strong>{{.Listing.Stats.AverageAge}} anos</strong></p>
</div>
<div class="card"><form method="get"><input type="text" name="q" value="{{.Listing.Query}}" placeholder="Buscar paciente..."></form></div>
{{range .Listing.Patients}}<div class="card">
<h3>{{.NomeCrianca}}</h3>
<p>{{if .DataNascimento}}{{date (deref .DataNascimento)}}{{else}}Data não informada{{end}}{{if .Idade}} ({{number .Idade}} anos){{end}}</p>
<p>{{if .NomeMae}}{{deref .NomeMae}}{{else}}Mãe não informada{{end}}</p>
{{if .Cel}}<p>{{deref .Cel}}</p>{{end}}
<p>Criado em {{created .CreatedAt}}</p>
{{if .MotivoConsulta}}<p>{{excerpt .MotivoConsulta}}</p>{{end}}
<p><a href="{{viewURL .ID}}">Ver Ficha</a> <a href="{{editURL .ID}}">Editar</a></p>
</div>{{else}}<div class="card">
{{if .Listing.Query}}<h3>Nenhum paciente encontrado</h3><p>Tente buscar com outros termos</p>
{{else}}<h3>Nenhuma ficha cadastrada</h3><p>Comece criando a primeira ficha de anamnese</p>
<p><a href="{{pathFor "NovaFicha"}}">Criar Primeira Ficha</a></p>{{end}}
</div>{{end}}{{end}}
{{end}}`

const consultationsBody = `{{define "content"}}
<div class="card"><h2>Consultas</h2><p>Histórico de atendimentos</p></div>
{{if .Error}}<div class="error">{{.Error}} <a href="{{.Retry}}">Tentar novamente</a></div>{{else}}
<div class="card">
<p>Total de Consultas: <strong>{{.Listing.Stats.Total}}</strong></p>
<p>Este Mês: <strong>{{.Listing.Stats.ThisMonth}}</strong></p>
<p>Pacientes Ativos: <strong>{{.Listing.Stats.ActivePatients}}</strong></p>
</div>
<div class="card"><form method="get"><input type="text" name="q" value="{{.Listing.Query}}" placeholder="Buscar consulta por paciente..."></form></div>
{{range .Listing.Consultations}}<div class="card">
<h3>{{if .PatientFound}}<a href="{{viewURL .PacienteID}}">{{.PatientName}}</a>{{else}}{{.PatientName}}{{end}}</h3>
<p>{{date .DataAtendimento}} · {{if .Peso}}{{number .Peso}} kg{{else}}Peso não informado{{end}} · Registrado em {{created .CreatedAt}}</p>
{{if .Observacoes}}<p>{{deref .Observacoes}}</p>{{end}}
</div>{{else}}<div class="card">
{{if .Listing.Query}}<h3>Nenhuma consulta encontrada</h3><p>Tente buscar com outros termos</p>
{{else}}<h3>Nenhuma consulta registrada</h3><p>As consultas aparecerão aqui quando você adicionar no histórico das fichas</p>{{end}}
</div>{{end}}{{end}}
{{end}}`

// errorState is the visible read failure: a message and the URL that
// retries the same request.
type errorState struct {
	Error string `json:"error"`
	Retry string `json:"retry"`
}

type patientsPage struct {
	Listing *PatientListing
	errorState
}

type consultationsPage struct {
	Listing *ConsultationListing
	errorState
}

type Handler struct {
	svc           *Service
	shell         *nav.Shell
	patients      *nav.View
	consultations *nav.View
}

// NewHandler builds the list handlers. Store failures are logged by svc.
func NewHandler(svc *Service, shell *nav.Shell) *Handler {
	return &Handler{
		svc:           svc,
		shell:         shell,
		patients:      shell.MustView(nav.Dashboard, patientsBody, pageFuncs),
		consultations: shell.MustView(nav.Consultas, consultationsBody, pageFuncs),
	}
}

// RegisterRoutes wires the JSON endpoints under api.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard/patients", h.ListPatients)
	api.GET("/dashboard/consultations", h.ListConsultations)
}

// RegisterPages wires the Dashboard and Consultas pages.
func (h *Handler) RegisterPages(e *echo.Echo) {
	e.GET(nav.Dashboard.Path(), h.PatientsPage)
	e.GET(nav.Consultas.Path(), h.ConsultationsPage)
}

func (h *Handler) ListPatients(c echo.Context) error {
	listing, err := h.svc.PatientList(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorState{Error: msgPatientsFailed, Retry: retryURL(c)})
	}
	return c.JSON(http.StatusOK, listing)
}

func (h *Handler) ListConsultations(c echo.Context) error {
	listing, err := h.svc.ConsultationList(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorState{Error: msgConsultationsFailed, Retry: retryURL(c)})
	}
	return c.JSON(http.StatusOK, listing)
}

func (h *Handler) PatientsPage(c echo.Context) error {
	listing, err := h.svc.PatientList(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		page := patientsPage{errorState: errorState{Error: msgPatientsFailed, Retry: retryURL(c)}}
		return h.shell.Render(c, http.StatusBadGateway, h.patients, "Pacientes", page)
	}
	return h.shell.Render(c, http.StatusOK, h.patients, "Pacientes", patientsPage{Listing: listing})
}

func (h *Handler) ConsultationsPage(c echo.Context) error {
	listing, err := h.svc.ConsultationList(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		page := consultationsPage{errorState: errorState{Error: msgConsultationsFailed, Retry: retryURL(c)}}
		return h.shell.Render(c, http.StatusBadGateway, h.consultations, "Consultas", page)
	}
	return h.shell.Render(c, http.StatusOK, h.consultations, "Consultas", consultationsPage{Listing: listing})
}

func retryURL(c echo.Context) string {
	u := url.URL{Path: c.Request().URL.Path, RawQuery: c.Request().URL.RawQuery}
	return u.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
