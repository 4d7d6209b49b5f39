package movement

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

// RegisterRoutes mounts one route set for all three stages; the :kind
// segment selects the binding. Role checks live in the service because the
// permitted roles differ per kind.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/movements/:kind")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Cancel)
	g.POST("/:id/confirm", h.Confirm)
}

func kindParam(c echo.Context) (Kind, error) {
	return ParseKind(c.Param("kind"))
}

func idParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type handoffRequest struct {
	LotID               uuid.UUID `json:"lot_id"`
	OriginEntityID      uuid.UUID `json:"origin_entity_id"`
	DestinationEntityID uuid.UUID `json:"destination_entity_id"`
	Quantity            *int      `json:"quantity"`
	Note                *string   `json:"note"`
}

func (h *Handler) Create(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	var req handoffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.Create(c.Request().Context(), actor, kind, &Handoff{
		LotID:               req.LotID,
		OriginEntityID:      req.OriginEntityID,
		DestinationEntityID: req.DestinationEntityID,
		Quantity:            req.Quantity,
		Note:                req.Note,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) List(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)

	f := Filter{Kind: kind}
	if v := c.QueryParam("status"); v != "" {
		switch Status(v) {
		case StatusInTransit, StatusReceived:
			st := Status(v)
			f.Status = &st
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}
	for param, dst := range map[string]**uuid.UUID{
		"lot_id":         &f.LotID,
		"origin_id":      &f.OriginEntityID,
		"destination_id": &f.DestinationEntityID,
	} {
		if v := c.QueryParam(param); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+param)
			}
			*dst = &id
		}
	}

	items, total, err := h.svc.List(c.Request().Context(), actor, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	m, err := h.svc.Get(c.Request().Context(), actor, kind, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) Update(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req handoffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.Update(c.Request().Context(), actor, kind, id, req.Quantity, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) Cancel(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Cancel(c.Request().Context(), actor, kind, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Confirm(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	m, err := h.svc.Confirm(c.Request().Context(), actor, kind, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}
