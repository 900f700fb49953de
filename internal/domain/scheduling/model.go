package scheduling

import (
	"strings"
	"time"

	"github.com/INFO333/mhoms-api/internal/domain/doctor"
	"github.com/INFO333/mhoms-api/internal/domain/patient"
)

const (
	StatusBooked    = "BOOKED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

var validStatuses = map[string]bool{
	StatusBooked:    true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// NormalizeStatus uppercases s and reports whether it names a known status.
func NormalizeStatus(s string) (string, bool) {
	up := strings.ToUpper(strings.TrimSpace(s))
	return up, validStatuses[up]
}

// Appointment maps to the appointments table. Patient and Doctor are loaded
// with it and rendered inline.
type Appointment struct {
	ID              int64            `db:"id" json:"id"`
	PatientID       int64            `db:"patient_id" json:"-"`
	DoctorID        int64            `db:"doctor_id" json:"-"`
	Patient         *patient.Patient `json:"patient"`
	Doctor          *doctor.Doctor   `json:"doctor"`
	AppointmentDate time.Time        `db:"appointment_date" json:"appointmentDate"`
	Status          string           `db:"status" json:"status"`
}

// Filter selects appointments. Every field is optional; set fields are
// ANDed. From/To are inclusive, After/Before exclusive.
type Filter struct {
	PatientID *int64
	DoctorID  *int64
	Status    string
	From      *time.Time
	To        *time.Time
	After     *time.Time
	Before    *time.Time
}

// BookRequest is the JSON form of a booking; the same fields are accepted
// as query parameters.
type BookRequest struct {
	PatientID       *int64 `json:"patientId" validate:"required"`
	DoctorID        *int64 `json:"doctorId" validate:"required"`
	AppointmentDate string `json:"appointmentDate" validate:"required"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type RescheduleRequest struct {
	NewDate string `json:"newDate" validate:"required"`
}

type Stats struct {
	TotalAppointments     int64 `json:"totalAppointments"`
	BookedAppointments    int64 `json:"bookedAppointments"`
	CompletedAppointments int64 `json:"completedAppointments"`
	CancelledAppointments int64 `json:"cancelledAppointments"`
	TodaysAppointments    int64 `json:"todaysAppointments"`
}

var SortFields = map[string]string{
	"id":              "id",
	"appointmentDate": "appointment_date",
	"status":          "status",
	"patientId":       "patient_id",
	"doctorId":        "doctor_id",
}

const (
	DefaultSortBy  = "appointmentDate"
	DefaultSortDir = "desc"
)
