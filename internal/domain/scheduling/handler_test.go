package scheduling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
	"github.com/INFO333/mhoms-api/internal/platform/validation"
	"github.com/INFO333/mhoms-api/pkg/pagination"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	e := echo.New()
	e.Validator = validation.New()
	return NewHandler(svc), e
}

func request(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Book_QueryParams(t *testing.T) {
	h, e := newTestHandler()
	c, rec := request(e, http.MethodPost, "/appointments?patientId=1&doctorId=10&appointmentDate=2024-03-10T15:00:00", "")

	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != StatusBooked {
		t.Errorf("expected BOOKED, got %v", body["status"])
	}
	if _, ok := body["patient"].(map[string]interface{}); !ok {
		t.Errorf("expected embedded patient, got %v", body["patient"])
	}
	if _, ok := body["patientId"]; ok {
		t.Error("raw foreign keys should not be rendered")
	}
}

func TestHandler_Book_JSONBody(t *testing.T) {
	h, e := newTestHandler()
	c, rec := request(e, http.MethodPost, "/appointments",
		`{"patientId":1,"doctorId":10,"appointmentDate":"2024-03-10T15:00:00","status":"COMPLETED"}`)

	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var a Appointment
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Status != StatusBooked {
		t.Errorf("caller-supplied status must be ignored, got %s", a.Status)
	}
}

func TestHandler_Book_BadInput(t *testing.T) {
	h, e := newTestHandler()

	c, _ := request(e, http.MethodPost, "/appointments?patientId=1&appointmentDate=2024-03-10T15:00:00", "")
	if err := h.Book(c); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for missing doctorId, got %v", err)
	}

	c, _ = request(e, http.MethodPost, "/appointments?patientId=1&doctorId=10&appointmentDate=soon", "")
	if err := h.Book(c); !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Errorf("expected invalid argument for bad date, got %v", err)
	}

	c, _ = request(e, http.MethodPost, "/appointments?patientId=x&doctorId=10&appointmentDate=2024-03-10T15:00:00", "")
	if err := h.Book(c); !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Errorf("expected invalid argument for bad patientId, got %v", err)
	}
}

func TestHandler_Book_Conflict(t *testing.T) {
	h, e := newTestHandler()
	target := "/appointments?patientId=1&doctorId=10&appointmentDate=2024-03-10T15:00:00"

	c, _ := request(e, http.MethodPost, target, "")
	if err := h.Book(c); err != nil {
		t.Fatal(err)
	}
	c, _ = request(e, http.MethodPost, target, "")
	if err := h.Book(c); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestHandler_StatusRescheduleCancel(t *testing.T) {
	h, e := newTestHandler()
	c, _ := request(e, http.MethodPost, "/appointments?patientId=1&doctorId=10&appointmentDate=2024-03-10T15:00:00", "")
	if err := h.Book(c); err != nil {
		t.Fatal(err)
	}

	c, rec := request(e, http.MethodPut, "/", `{"status":"completed"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.UpdateStatus(c); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"COMPLETED"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	c, rec = request(e, http.MethodPut, "/?newDate=2024-03-11T10:00:00", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Reschedule(c); err != nil {
		t.Fatalf("Reschedule (query): %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"appointmentDate":"2024-03-11T10:00:00Z"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	c, _ = request(e, http.MethodPut, "/", `{"newDate":"2024-03-12T10:00:00"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Reschedule(c); err != nil {
		t.Fatalf("Reschedule (body): %v", err)
	}

	c, rec = request(e, http.MethodPut, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Cancel(c); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"CANCELLED"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_Reschedule_MissingDate(t *testing.T) {
	h, e := newTestHandler()
	c, _ := request(e, http.MethodPut, "/", `{}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Reschedule(c); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_Search(t *testing.T) {
	h, e := newTestHandler()
	for _, q := range []string{
		"patientId=1&doctorId=10&appointmentDate=2024-03-10T15:00:00",
		"patientId=2&doctorId=11&appointmentDate=2024-03-10T15:00:00",
	} {
		c, _ := request(e, http.MethodPost, "/appointments?"+q, "")
		if err := h.Book(c); err != nil {
			t.Fatal(err)
		}
	}

	c, rec := request(e, http.MethodGet, "/appointments/search?doctorId=11&startDate=2024-03-10T00:00:00&endDate=2024-03-10T23:59:59", "")
	if err := h.Search(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page pagination.Page[Appointment]
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.TotalElements != 1 || page.Content[0].Doctor.ID != 11 {
		t.Errorf("unexpected page: %+v", page)
	}

	c, _ = request(e, http.MethodGet, "/appointments/search?startDate=yesterday", "")
	if err := h.Search(c); !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}

	c, _ = request(e, http.MethodGet, "/appointments/page?sortBy=patient.name", "")
	if err := h.ListPage(c); !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Errorf("expected invalid argument for sort field, got %v", err)
	}
}

func TestHandler_TodayAndStats(t *testing.T) {
	h, e := newTestHandler()
	c, _ := request(e, http.MethodPost, "/appointments?patientId=1&doctorId=10&appointmentDate=2024-03-10T15:00:00", "")
	if err := h.Book(c); err != nil {
		t.Fatal(err)
	}

	c, rec := request(e, http.MethodGet, "/", "")
	c.SetParamNames("doctorId")
	c.SetParamValues("10")
	if err := h.TodayForDoctor(c); err != nil {
		t.Fatal(err)
	}
	var list []Appointment
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Errorf("expected 1 appointment today, got %d", len(list))
	}

	c, rec = request(e, http.MethodGet, "/appointments/stats", "")
	if err := h.Stats(c); err != nil {
		t.Fatal(err)
	}
	want := `{"totalAppointments":1,"bookedAppointments":1,"completedAppointments":0,"cancelledAppointments":0,"todaysAppointments":1}`
	if strings.TrimSpace(rec.Body.String()) != want {
		t.Errorf("got %s", rec.Body.String())
	}
}

func TestHandler_Delete(t *testing.T) {
	h, e := newTestHandler()
	c, rec := request(e, http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := h.Delete(c); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if rec.Code == http.StatusNoContent {
		t.Error("no content must not be written on failure")
	}
}
