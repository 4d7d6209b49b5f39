package catalog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/pkg/pagination"
)

type Handler struct {
	svc *Service
	// defaultExpiryDays backs /lots/expiring when no window is given.
	defaultExpiryDays int
}

func NewHandler(svc *Service, defaultExpiryDays int) *Handler {
	return &Handler{svc: svc, defaultExpiryDays: defaultExpiryDays}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	meds := api.Group("/medications", auth.RequireRole(auth.RoleManufacturer))
	meds.POST("", h.CreateMedication)
	meds.GET("", h.ListMedications)
	meds.GET("/:id", h.GetMedication)
	meds.PUT("/:id", h.UpdateMedication)
	meds.DELETE("/:id", h.DeleteMedication)

	lotRead := api.Group("/lots", auth.RequireRole(
		auth.RoleManufacturer, auth.RoleDistributor, auth.RoleRegionalAuthority))
	lotRead.GET("", h.ListLots)
	lotRead.GET("/expiring", h.ListExpiring)
	lotRead.GET("/:id", h.GetLot)

	lotWrite := api.Group("/lots", auth.RequireRole(auth.RoleManufacturer))
	lotWrite.POST("", h.CreateLot)
	lotWrite.DELETE("/:id", h.DeleteLot)
}

func (h *Handler) CreateMedication(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.CreateMedication(c.Request().Context(), actor, &m)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetMedication(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.GetMedication(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMedications(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	var manufacturerID *uuid.UUID
	if v := c.QueryParam("manufacturer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid manufacturer_id")
		}
		manufacturerID = &id
	}

	items, total, err := h.svc.ListMedications(c.Request().Context(), actor, manufacturerID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var upd Medication
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.UpdateMedication(c.Request().Context(), actor, id, &upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMedication(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteMedication(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type lotRequest struct {
	MedicationID    uuid.UUID `json:"medication_id"`
	Code            string    `json:"code"`
	ManufactureDate time.Time `json:"manufacture_date"`
	ExpiryDate      time.Time `json:"expiry_date"`
	InitialQuantity int       `json:"initial_quantity"`
}

func (h *Handler) CreateLot(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var req lotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l := &Lot{
		MedicationID:    req.MedicationID,
		Code:            req.Code,
		ManufactureDate: req.ManufactureDate,
		ExpiryDate:      req.ExpiryDate,
		InitialQuantity: req.InitialQuantity,
	}
	created, err := h.svc.CreateLot(c.Request().Context(), actor, l)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetLot(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	l, err := h.svc.GetLot(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) ListLots(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	var medicationID *uuid.UUID
	if v := c.QueryParam("medication_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid medication_id")
		}
		medicationID = &id
	}

	items, total, err := h.svc.ListLots(c.Request().Context(), actor, medicationID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListExpiring(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	days := h.defaultExpiryDays
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid days")
		}
		days = n
	}
	items, err := h.svc.ListExpiring(c.Request().Context(), actor, days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "days": days})
}

func (h *Handler) DeleteLot(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteLot(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
