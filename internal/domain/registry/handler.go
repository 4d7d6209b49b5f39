package registry

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// routeSpec binds one URL segment to an entity type and the roles admitted
// to its routes.
var routeSpecs = []struct {
	segment string
	typ     EntityType
	role    auth.Role
}{
	{"manufacturers", TypeManufacturer, auth.RoleManufacturer},
	{"distributors", TypeDistributor, auth.RoleDistributor},
	{"authorities", TypeAuthority, auth.RoleRegionalAuthority},
	{"units", TypeUnit, auth.RoleLocalUnit},
	{"patients", TypePatient, auth.RolePatient},
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	for _, spec := range routeSpecs {
		g := api.Group("/"+spec.segment, auth.RequireRole(spec.role))
		typ := spec.typ
		g.POST("", h.create(typ))
		g.GET("", h.list(typ))
		g.GET("/:id", h.get(typ))
		g.PUT("/:id", h.update(typ))
		g.DELETE("/:id", h.remove(typ))
	}
	api.GET("/me/entity", h.me)
}

// me returns the entity registered by the calling actor, 404 when
// registration has not happened yet.
func (h *Handler) me(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	e, err := h.svc.Own(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

type entityRequest struct {
	Name         string     `json:"name"`
	Document     string     `json:"document"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone"`
	Address      *string    `json:"address"`
	ParentID     *uuid.UUID `json:"parent_id"`
	OwnerActorID string     `json:"owner_actor_id"`
}

func (h *Handler) create(t EntityType) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, _ := auth.ActorFromContext(c.Request().Context())
		var req entityRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		e := &Entity{
			Type:         t,
			Name:         req.Name,
			Document:     req.Document,
			Email:        req.Email,
			Phone:        req.Phone,
			Address:      req.Address,
			ParentID:     req.ParentID,
			OwnerActorID: req.OwnerActorID,
		}
		created, err := h.svc.Create(c.Request().Context(), actor, e)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func (h *Handler) list(t EntityType) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, _ := auth.ActorFromContext(c.Request().Context())
		pg := pagination.FromContext(c)
		items, total, err := h.svc.List(c.Request().Context(), actor, t, pg.Limit, pg.Offset)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
}

func (h *Handler) get(t EntityType) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, _ := auth.ActorFromContext(c.Request().Context())
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		e, err := h.svc.Get(c.Request().Context(), actor, t, id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, e)
	}
}

func (h *Handler) update(t EntityType) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, _ := auth.ActorFromContext(c.Request().Context())
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		var req entityRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		upd := &Entity{
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Address: req.Address,
		}
		e, err := h.svc.Update(c.Request().Context(), actor, t, id, upd)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, e)
	}
}

func (h *Handler) remove(t EntityType) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, _ := auth.ActorFromContext(c.Request().Context())
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		if err := h.svc.Delete(c.Request().Context(), actor, t, id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}
