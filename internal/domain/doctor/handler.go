package doctor

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
	"github.com/INFO333/mhoms-api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/page", h.ListPage)
	g.GET("/search", h.Search)
	g.GET("/specializations", h.Specializations)
	g.GET("/specialization/:specialization", h.BySpecialization)
	g.GET("/active", h.ListActive)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/toggle-status", h.ToggleStatus)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return err
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	d, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListActive(c echo.Context) error {
	items, err := h.svc.ListActive(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListPage(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	items, total, err := h.svc.ListPage(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, total, p))
}

func (h *Handler) Search(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	criteria := SearchCriteria{
		Name:           c.QueryParam("name"),
		Specialization: c.QueryParam("specialization"),
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.InvalidArgument("Invalid active: %s", raw)
		}
		criteria.Active = &active
	}
	items, total, err := h.svc.Search(c.Request().Context(), criteria, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, total, p))
}

func (h *Handler) Specializations(c echo.Context) error {
	specs, err := h.svc.Specializations(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, specs)
}

func (h *Handler) BySpecialization(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	items, total, err := h.svc.BySpecialization(c.Request().Context(), c.Param("specialization"), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, total, p))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return err
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	d, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ToggleStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.ToggleStatus(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperr.InvalidArgument("Invalid id: %s", c.Param("id"))
	}
	return id, nil
}

func pageParams(c echo.Context) (pagination.Params, error) {
	p := pagination.FromContext(c, DefaultSortBy, DefaultSortDir)
	if err := p.Validate(SortFields); err != nil {
		return p, apperr.InvalidArgument("Invalid sort field: %s", p.SortBy)
	}
	return p, nil
}
