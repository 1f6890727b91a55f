package records

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler exposes read access to the record store. Writes go through the
// intake flow; deletion is not offered over HTTP.
type Handler struct {
	patients      PatientRepository
	consultations ConsultationRepository
	logger        zerolog.Logger
}

func NewHandler(patients PatientRepository, consultations ConsultationRepository, logger zerolog.Logger) *Handler {
	return &Handler{patients: patients, consultations: consultations, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.GET("/consultations", h.ListConsultations)
	api.GET("/consultations/:id", h.GetConsultation)
}

func (h *Handler) ListPatients(c echo.Context) error {
	items, err := h.patients.List(c.Request().Context(), c.QueryParam("order"))
	if err != nil {
		return h.storeError(c, "list pacientes", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  items,
		"total": len(items),
	})
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.patients.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.storeError(c, "get paciente", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListConsultations(c echo.Context) error {
	items, err := h.consultations.List(c.Request().Context(), c.QueryParam("order"))
	if err != nil {
		return h.storeError(c, "list consultas", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  items,
		"total": len(items),
	})
}

func (h *Handler) GetConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cons, err := h.consultations.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.storeError(c, "get consulta", err)
	}
	return c.JSON(http.StatusOK, cons)
}

// storeError maps record store errors to HTTP errors and logs the ones the
// caller cannot fix.
func (h *Handler) storeError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	case errors.Is(err, ErrInvalidOrder):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.logger.Error().Err(err).Str("op", op).Str("path", c.Path()).Msg("record store failure")
	return echo.NewHTTPError(http.StatusBadGateway, "record store unavailable")
}
