package scheduling

import (
	"net/http"
	"strconv"
	"time"

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
	g.POST("", h.Book)
	g.GET("", h.List)
	g.GET("/page", h.ListPage)
	g.GET("/search", h.Search)
	g.GET("/today", h.Today)
	g.GET("/today/doctor/:doctorId", h.TodayForDoctor)
	g.GET("/upcoming", h.Upcoming)
	g.GET("/upcoming/patient/:patientId", h.UpcomingForPatient)
	g.GET("/upcoming/doctor/:doctorId", h.UpcomingForDoctor)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.PUT("/:id/status", h.UpdateStatus)
	g.PUT("/:id/reschedule", h.Reschedule)
	g.PUT("/:id/cancel", h.Cancel)
	g.DELETE("/:id", h.Delete)
}

// Book accepts patientId, doctorId and appointmentDate as query parameters
// or, when patientId is absent from the query, as a JSON body.
func (h *Handler) Book(c echo.Context) error {
	var req BookRequest
	if c.QueryParam("patientId") != "" {
		var err error
		if req.PatientID, err = optionalID(c.QueryParam("patientId"), "patientId"); err != nil {
			return err
		}
		if req.DoctorID, err = optionalID(c.QueryParam("doctorId"), "doctorId"); err != nil {
			return err
		}
		req.AppointmentDate = c.QueryParam("appointmentDate")
	} else if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	at, err := h.timestamp(req.AppointmentDate, "appointmentDate")
	if err != nil {
		return err
	}
	a, err := h.svc.Book(c.Request().Context(), *req.PatientID, *req.DoctorID, at)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	return listJSON(c, items, err)
}

func (h *Handler) ListPage(c echo.Context) error {
	p, err := pageParams(c, DefaultSortBy, DefaultSortDir)
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
	p, err := pageParams(c, DefaultSortBy, DefaultSortDir)
	if err != nil {
		return err
	}
	f := Filter{Status: c.QueryParam("status")}
	if f.PatientID, err = optionalID(c.QueryParam("patientId"), "patientId"); err != nil {
		return err
	}
	if f.DoctorID, err = optionalID(c.QueryParam("doctorId"), "doctorId"); err != nil {
		return err
	}
	if f.From, err = h.optionalTimestamp(c.QueryParam("startDate"), "startDate"); err != nil {
		return err
	}
	if f.To, err = h.optionalTimestamp(c.QueryParam("endDate"), "endDate"); err != nil {
		return err
	}
	items, total, err := h.svc.Search(c.Request().Context(), f, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, total, p))
}

func (h *Handler) Today(c echo.Context) error {
	items, err := h.svc.Today(c.Request().Context())
	return listJSON(c, items, err)
}

func (h *Handler) TodayForDoctor(c echo.Context) error {
	id, err := pathID(c, "doctorId")
	if err != nil {
		return err
	}
	items, err := h.svc.TodayForDoctor(c.Request().Context(), id)
	return listJSON(c, items, err)
}

func (h *Handler) Upcoming(c echo.Context) error {
	p, err := pageParams(c, "appointmentDate", pagination.Asc)
	if err != nil {
		return err
	}
	items, total, err := h.svc.Upcoming(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, total, p))
}

func (h *Handler) UpcomingForPatient(c echo.Context) error {
	id, err := pathID(c, "patientId")
	if err != nil {
		return err
	}
	items, err := h.svc.UpcomingForPatient(c.Request().Context(), id)
	return listJSON(c, items, err)
}

func (h *Handler) UpcomingForDoctor(c echo.Context) error {
	id, err := pathID(c, "doctorId")
	if err != nil {
		return err
	}
	items, err := h.svc.UpcomingForDoctor(c.Request().Context(), id)
	return listJSON(c, items, err)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Reschedule takes newDate from the query string, falling back to a JSON
// body.
func (h *Handler) Reschedule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	req := RescheduleRequest{NewDate: c.QueryParam("newDate")}
	if req.NewDate == "" {
		if err := c.Bind(&req); err != nil {
			return err
		}
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	at, err := h.timestamp(req.NewDate, "newDate")
	if err != nil {
		return err
	}
	a, err := h.svc.Reschedule(c.Request().Context(), id, at)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
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

func (h *Handler) timestamp(raw, name string) (time.Time, error) {
	t, err := ParseTimestamp(raw, h.svc.Location())
	if err != nil {
		return time.Time{}, apperr.InvalidArgument("Invalid %s: %s", name, raw)
	}
	return t, nil
}

func (h *Handler) optionalTimestamp(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := h.timestamp(raw, name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func listJSON(c echo.Context, items []*Appointment, err error) error {
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, apperr.InvalidArgument("Invalid %s: %s", name, c.Param(name))
	}
	return id, nil
}

func optionalID(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.InvalidArgument("Invalid %s: %s", name, raw)
	}
	return &id, nil
}

func pageParams(c echo.Context, sortBy, sortDir string) (pagination.Params, error) {
	p := pagination.FromContext(c, sortBy, sortDir)
	if err := p.Validate(SortFields); err != nil {
		return p, apperr.InvalidArgument("Invalid sort field: %s", p.SortBy)
	}
	return p, nil
}
