package analytics

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrace/medtrace/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dashboard")
	g.GET("/manufacturer/overview", h.ManufacturerOverview,
		auth.RequireRole(auth.RoleManufacturer))
	g.GET("/distributor/logistics", h.DistributorLogistics,
		auth.RequireRole(auth.RoleDistributor))
	g.GET("/authority/management", h.AuthorityManagement,
		auth.RequireRole(auth.RoleRegionalAuthority))
	g.GET("/unit/stock", h.UnitStock,
		auth.RequireRole(auth.RoleLocalUnit))
}

// entityIDParam reads the admin-only entity_id override.
func entityIDParam(c echo.Context) (*uuid.UUID, error) {
	v := c.QueryParam("entity_id")
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid entity_id")
	}
	return &id, nil
}

func (h *Handler) ManufacturerOverview(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	requested, err := entityIDParam(c)
	if err != nil {
		return err
	}
	o, err := h.svc.ManufacturerOverview(c.Request().Context(), actor, requested)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) DistributorLogistics(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	requested, err := entityIDParam(c)
	if err != nil {
		return err
	}
	d, err := h.svc.DistributorLogistics(c.Request().Context(), actor, requested)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) AuthorityManagement(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	requested, err := entityIDParam(c)
	if err != nil {
		return err
	}
	a, err := h.svc.AuthorityManagement(c.Request().Context(), actor, requested)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UnitStock(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	requested, err := entityIDParam(c)
	if err != nil {
		return err
	}
	u, err := h.svc.UnitStock(c.Request().Context(), actor, requested)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
