package ficha

import (
	"context"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/domain/records"
	"github.com/tiopaulo/anamnese/internal/platform/nav"
	"github.com/tiopaulo/anamnese/internal/platform/pdfexport"
)

const (
	msgLoadFailed   = "Erro ao carregar a ficha."
	msgNotFound     = "Paciente não encontrado"
	msgExportFailed = "Erro ao gerar o PDF. Tente novamente."
	msgExportBusy   = "A exportação desta ficha já está em andamento."
)

// Exporter produces the PDF of one document.
type Exporter interface {
	Export(ctx context.Context, doc pdfexport.Document) (*pdfexport.Result, error)
}

const detailBody = `{{define "content"}}
{{if .Error}}<div class="error">{{.Error}} <a href="{{.Retry}}">Tentar novamente</a></div>
{{else if not .View.Found}}<div class="card"><h2>Paciente não encontrado</h2>
<p>A ficha solicitada não existe ou foi removida.</p>
<p><a href="{{pathFor "Dashboard"}}">Voltar ao Dashboard</a></p></div>
{{else}}
<div class="card"><h2>{{.View.Patient.NomeCrianca}}</h2>
<p>Ficha criada em {{created .View.Patient.CreatedAt}}</p>
<p><a href="{{pathFor "Dashboard"}}">Voltar</a> <a href="{{.EditURL}}">Editar Ficha</a> <a href="{{.ExportURL}}">Exportar PDF</a></p></div>
{{if .ExportError}}<div class="error">{{.ExportError}}</div>{{end}}
{{range .View.Sections}}<div class="card"><h3>{{.Title}}</h3>
{{if .Chart}}<table>{{range .Chart}}<tr><th>{{.Name}}</th>{{range .Cells}}<td{{if .Selected}} style="background:#dc2626"{{end}}>{{.Code}}</td>{{end}}</tr>{{end}}</table>{{end}}
{{range .Rows}}<p><strong>{{.Label}}</strong> {{.Value}}</p>{{end}}
{{if .ScreenOnly}}{{if .History}}<table><tr><th>Data</th><th>Peso</th><th>Observações</th><th>Procedimentos</th></tr>
{{range .History}}<tr><td>{{.Date}}</td><td>{{.Weight}}</td><td>{{.Notes}}</td><td>{{.Procedures}}</td></tr>{{end}}</table>
{{else}}<p>Nenhuma consulta registrada</p>{{end}}{{end}}
{{range .Signatures}}<div style="display:inline-block;width:45%;margin:48px 2% 0;border-top:1px solid #fff;text-align:center">{{.}}</div>{{end}}
</div>{{end}}
{{end}}
{{end}}`

type detailPage struct {
	Error       string
	Retry       string
	View        *View
	EditURL     string
	ExportURL   string
	ExportError string
}

// Handler serves the detail page, its JSON form and the PDF export.
type Handler struct {
	svc      *Service
	exporter Exporter
	shell    *nav.Shell
	detail   *nav.View
	logger   zerolog.Logger
}

func NewHandler(svc *Service, exporter Exporter, shell *nav.Shell, logger zerolog.Logger) *Handler {
	funcs := template.FuncMap{
		"created": func(t time.Time) string { return t.Format(records.DisplayDateLayout) },
	}
	return &Handler{
		svc:      svc,
		exporter: exporter,
		shell:    shell,
		detail:   shell.MustView(nav.VisualizarFicha, detailBody, funcs),
		logger:   logger,
	}
}

// exportPagePath is the page-level export action.
func exportPagePath() string {
	return nav.VisualizarFicha.Path() + "/pdf"
}

// RegisterRoutes mounts the JSON endpoints on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/fichas/:id", h.GetFicha)
	api.GET("/patients/:id/export", h.ExportFicha)
}

// RegisterPages mounts the detail page and its export action.
func (h *Handler) RegisterPages(e *echo.Echo) {
	e.GET(nav.VisualizarFicha.Path(), h.DetailPage)
	e.GET(exportPagePath(), h.ExportPage)
}

func (h *Handler) GetFicha(c echo.Context) error {
	v, err := h.svc.Load(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": msgLoadFailed, "retry": c.Request().URL.RequestURI()})
	}
	if !v.Found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": msgNotFound})
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ExportFicha(c echo.Context) error {
	v, err := h.svc.Load(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": msgLoadFailed, "retry": c.Request().URL.RequestURI()})
	}
	if !v.Found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": msgNotFound})
	}

	res, status, msg := h.export(c, v)
	if res == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}
	return sendPDF(c, res)
}

func (h *Handler) DetailPage(c echo.Context) error {
	return h.renderDetail(c, c.QueryParam("id"))
}

// ExportPage downloads the PDF, or shows the detail page again with a
// visible failure.
func (h *Handler) ExportPage(c echo.Context) error {
	rawID := c.QueryParam("id")
	v, err := h.svc.Load(c.Request().Context(), rawID)
	if err != nil {
		return h.renderFailure(c, rawID)
	}
	if !v.Found {
		return h.shell.Render(c, http.StatusNotFound, h.detail, msgNotFound, detailPage{View: v})
	}

	res, status, msg := h.export(c, v)
	if res == nil {
		return h.renderLoaded(c, v, status, msg)
	}
	return sendPDF(c, res)
}

func (h *Handler) export(c echo.Context, v *View) (*pdfexport.Result, int, string) {
	res, err := h.exporter.Export(c.Request().Context(), ExportDocument(v))
	switch {
	case errors.Is(err, pdfexport.ErrExportInProgress):
		return nil, http.StatusConflict, msgExportBusy
	case err != nil:
		h.logger.Error().Err(err).Str("paciente_id", v.Patient.ID.String()).Msg("export failed")
		return nil, http.StatusInternalServerError, msgExportFailed
	}
	return res, http.StatusOK, ""
}

func (h *Handler) renderDetail(c echo.Context, rawID string) error {
	v, err := h.svc.Load(c.Request().Context(), rawID)
	if err != nil {
		return h.renderFailure(c, rawID)
	}
	if !v.Found {
		return h.shell.Render(c, http.StatusNotFound, h.detail, msgNotFound, detailPage{View: v})
	}
	return h.renderLoaded(c, v, http.StatusOK, "")
}

func (h *Handler) renderFailure(c echo.Context, rawID string) error {
	return h.shell.Render(c, http.StatusBadGateway, h.detail, "Visualizar Ficha", detailPage{
		Error: msgLoadFailed,
		Retry: nav.VisualizarFicha.WithID(rawID),
	})
}

func (h *Handler) renderLoaded(c echo.Context, v *View, status int, exportErr string) error {
	id := v.Patient.ID.String()
	return h.shell.Render(c, status, h.detail, v.Patient.NomeCrianca, detailPage{
		View:        v,
		EditURL:     nav.EditarFicha.WithID(id),
		ExportURL:   exportPagePath() + "?" + url.Values{"id": {id}}.Encode(),
		ExportError: exportErr,
	})
}

func sendPDF(c echo.Context, res *pdfexport.Result) error {
	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	if res.ArchiveID != "" {
		c.Response().Header().Set("X-Archive-ID", res.ArchiveID)
	}
	return c.Blob(http.StatusOK, "application/pdf", res.Data)
}
