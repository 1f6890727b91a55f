package intake

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/domain/chart"
	"github.com/tiopaulo/anamnese/internal/domain/records"
)

const (
	msgSaveFailed   = "Erro ao salvar a ficha. Tente novamente."
	msgIncomplete   = "Informe a data do atendimento e o peso para adicionar a consulta."
	msgUnknownField = "Campo desconhecido."
)

// Handler exposes the draft API and the patient write endpoints.
type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/drafts", h.CreateDraft)
	api.GET("/drafts/:id", h.GetDraft)
	api.PATCH("/drafts/:id", h.SetFields)
	api.DELETE("/drafts/:id", h.DeleteDraft)
	api.POST("/drafts/:id/consultations", h.AddDraftConsultation)
	api.POST("/drafts/:id/teeth/:code", h.ToggleTooth)
	api.POST("/drafts/:id/submit", h.SubmitDraft)

	api.POST("/patients", h.CreatePatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.POST("/patients/:id/consultations", h.CreateConsultation)
	api.POST("/patients/:id/drafts", h.EditPatient)
}

// formRequest is a complete form payload: catalog fields plus the visits
// typed below them.
type formRequest struct {
	Fields        map[string]any      `json:"fields"`
	Consultations []DraftConsultation `json:"consultas"`
}

func (h *Handler) CreateDraft(c echo.Context) error {
	var req formRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := draftFromRequest(req)
	if err != nil {
		return h.writeError(c, err)
	}
	h.svc.Drafts().Put(d)
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDraft(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Drafts().Get(id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// SetFields replaces the given fields on a draft. Values are kept as sent;
// nothing is validated before submission.
func (h *Handler) SetFields(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req formRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.Drafts().Update(id, func(d *Draft) error {
		return d.SetFields(req.Fields)
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDraft(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !h.svc.Drafts().Delete(id) {
		return h.writeError(c, ErrDraftNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddDraftConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var e DraftConsultation
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.Drafts().Update(id, func(d *Draft) error {
		return d.AddConsultation(e)
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// ToggleTooth marks or unmarks one tooth on the draft's dental chart.
func (h *Handler) ToggleTooth(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid tooth code")
	}
	d, err := h.svc.Drafts().Update(id, func(d *Draft) error {
		return d.ToggleTooth(code)
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// SubmitDraft saves a draft. Edit drafts update their patient; the draft is
// discarded only after the store accepted it.
func (h *Handler) SubmitDraft(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Drafts().Get(id)
	if err != nil {
		return h.writeError(c, err)
	}

	var res *Result
	status := http.StatusCreated
	if d.PatientID != nil {
		res, err = h.svc.Update(c.Request().Context(), *d.PatientID, d)
		status = http.StatusOK
	} else {
		res, err = h.svc.Submit(c.Request().Context(), d)
	}
	if err != nil {
		return h.writeError(c, err)
	}
	h.svc.Drafts().Delete(id)
	return c.JSON(status, res)
}

// CreatePatient runs a one-shot submission of a full form payload.
func (h *Handler) CreatePatient(c echo.Context) error {
	var req formRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := draftFromRequest(req)
	if err != nil {
		return h.writeError(c, err)
	}
	res, err := h.svc.Submit(c.Request().Context(), d)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req formRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := draftFromRequest(req)
	if err != nil {
		return h.writeError(c, err)
	}
	res, err := h.svc.Update(c.Request().Context(), id, d)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var e DraftConsultation
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cons, err := h.svc.AddConsultation(c.Request().Context(), id, e)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cons)
}

// EditPatient opens an edit draft seeded with the stored record.
func (h *Handler) EditPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.EditDraft(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// draftFromRequest builds a draft from a full payload. Incomplete visits are
// rejected rather than dropped.
func draftFromRequest(req formRequest) (*Draft, error) {
	d := NewDraft()
	if err := d.SetFields(req.Fields); err != nil {
		return nil, err
	}
	for _, e := range req.Consultations {
		if err := d.AddConsultation(e); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (h *Handler) writeError(c echo.Context, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": verr.Message,
			"field": verr.Field,
		})
	case errors.Is(err, ErrIncompleteConsultation):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"warning": msgIncomplete,
		})
	case errors.Is(err, ErrUnknownField):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":  msgUnknownField,
			"detail": err.Error(),
		})
	case errors.Is(err, chart.ErrInvalidTooth):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDraftNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "draft not found")
	case errors.Is(err, records.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "paciente not found")
	}
	h.logger.Error().Err(err).Str("path", c.Path()).Msg("intake request failed")
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": msgSaveFailed})
}
