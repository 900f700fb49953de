package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/INFO333/mhoms-api/internal/domain/doctor"
	"github.com/INFO333/mhoms-api/internal/domain/patient"
	"github.com/INFO333/mhoms-api/internal/platform/apperr"
	"github.com/INFO333/mhoms-api/internal/platform/db"
	"github.com/INFO333/mhoms-api/pkg/pagination"
)

const (
	msgSlotTaken       = "Doctor already has an appointment at this time - Please choose a different time slot"
	msgRescheduleTaken = "Doctor already has an appointment at this time"
)

// PatientFinder and DoctorFinder are satisfied by the patient and doctor
// repositories.
type PatientFinder interface {
	GetByID(ctx context.Context, id int64) (*patient.Patient, error)
}

type DoctorFinder interface {
	GetByID(ctx context.Context, id int64) (*doctor.Doctor, error)
}

type Service struct {
	appts    Repository
	patients PatientFinder
	doctors  DoctorFinder
	tx       db.Transactor
	loc      *time.Location
	now      func() time.Time
}

// NewService wires the appointment service. loc is the zone that defines
// "today" and is applied to timestamps given without an offset.
func NewService(appts Repository, patients PatientFinder, doctors DoctorFinder, tx db.Transactor, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{appts: appts, patients: patients, doctors: doctors, tx: tx, loc: loc, now: time.Now}
}

// Location returns the zone used for parsing and day boundaries.
func (s *Service) Location() *time.Location {
	return s.loc
}

func notFound(id int64) error {
	return apperr.NotFound("Appointment not found with id: %d", id)
}

// Book creates a BOOKED appointment. The slot check and the insert share a
// transaction; the (doctor_id, appointment_date) unique index rejects a
// concurrent duplicate that passes the check.
func (s *Service) Book(ctx context.Context, patientID, doctorID int64, at time.Time) (*Appointment, error) {
	var out *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByID(ctx, patientID)
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("Patient not found with id: %d", patientID)
		}
		if err != nil {
			return fmt.Errorf("load patient %d: %w", patientID, err)
		}

		d, err := s.doctors.GetByID(ctx, doctorID)
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("Doctor not found with id: %d", doctorID)
		}
		if err != nil {
			return fmt.Errorf("load doctor %d: %w", doctorID, err)
		}
		if !d.Active {
			return apperr.InvalidState("Doctor '%s' is not currently available for appointments", d.Name)
		}

		taken, err := s.appts.ExistsByDoctorAndDate(ctx, doctorID, at, 0)
		if err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if taken {
			return apperr.Conflict(msgSlotTaken)
		}

		a := &Appointment{
			PatientID:       patientID,
			DoctorID:        doctorID,
			Patient:         p,
			Doctor:          d,
			AppointmentDate: at,
			Status:          StatusBooked,
		}
		if err := s.appts.Create(ctx, a); err != nil {
			return fmt.Errorf("book appointment: %w", err)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.localize(out), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	var a *Appointment
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.get(ctx, id)
		return err
	})
	return a, err
}

func (s *Service) get(ctx context.Context, id int64) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return s.localize(a), nil
}

func (s *Service) List(ctx context.Context) ([]*Appointment, error) {
	return s.readList(ctx, func(ctx context.Context) ([]*Appointment, error) {
		return s.appts.ListAll(ctx)
	})
}

func (s *Service) ListPage(ctx context.Context, page pagination.Params) ([]*Appointment, int64, error) {
	return s.Search(ctx, Filter{}, page)
}

func (s *Service) Search(ctx context.Context, f Filter, page pagination.Params) ([]*Appointment, int64, error) {
	if f.Status != "" {
		f.Status, _ = NormalizeStatus(f.Status)
	}
	var (
		items []*Appointment
		total int64
	)
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		items, total, err = s.appts.Search(ctx, f, page)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	for _, a := range items {
		s.localize(a)
	}
	return items, total, nil
}

func (s *Service) todayFilter() Filter {
	from, to := dayBounds(s.now(), s.loc)
	return Filter{From: &from, Before: &to}
}

func (s *Service) upcomingFilter() Filter {
	now := s.now()
	return Filter{After: &now, Status: StatusBooked}
}

// Today lists appointments on the current calendar day, earliest first.
func (s *Service) Today(ctx context.Context) ([]*Appointment, error) {
	return s.find(ctx, s.todayFilter())
}

func (s *Service) TodayForDoctor(ctx context.Context, doctorID int64) ([]*Appointment, error) {
	f := s.todayFilter()
	f.DoctorID = &doctorID
	return s.find(ctx, f)
}

// Upcoming pages BOOKED appointments strictly after now.
func (s *Service) Upcoming(ctx context.Context, page pagination.Params) ([]*Appointment, int64, error) {
	return s.Search(ctx, s.upcomingFilter(), page)
}

func (s *Service) UpcomingForPatient(ctx context.Context, patientID int64) ([]*Appointment, error) {
	f := s.upcomingFilter()
	f.PatientID = &patientID
	return s.find(ctx, f)
}

func (s *Service) UpcomingForDoctor(ctx context.Context, doctorID int64) ([]*Appointment, error) {
	f := s.upcomingFilter()
	f.DoctorID = &doctorID
	return s.find(ctx, f)
}

func (s *Service) find(ctx context.Context, f Filter) ([]*Appointment, error) {
	return s.readList(ctx, func(ctx context.Context) ([]*Appointment, error) {
		return s.appts.Find(ctx, f)
	})
}

func (s *Service) readList(ctx context.Context, fn func(ctx context.Context) ([]*Appointment, error)) ([]*Appointment, error) {
	var items []*Appointment
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		items, err = fn(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, a := range items {
		s.localize(a)
	}
	return items, nil
}

// UpdateStatus sets the status, matched case-insensitively and stored
// uppercase. Setting the current status again is a no-op success.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*Appointment, error) {
	var out *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		normalized, ok := NormalizeStatus(status)
		if !ok {
			return apperr.InvalidArgument("Invalid status: %s. Valid values are: BOOKED, COMPLETED, CANCELLED", status)
		}
		if err := s.appts.UpdateStatus(ctx, id, normalized); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return notFound(id)
			}
			return fmt.Errorf("update appointment %d status: %w", id, err)
		}
		a.Status = normalized
		out = a
		return nil
	})
	return out, err
}

func (s *Service) Cancel(ctx context.Context, id int64) (*Appointment, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}

// Reschedule moves the appointment to at, keeping its status. The
// appointment's own row does not count as a collision.
func (s *Service) Reschedule(ctx context.Context, id int64, at time.Time) (*Appointment, error) {
	var out *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		taken, err := s.appts.ExistsByDoctorAndDate(ctx, a.DoctorID, at, a.ID)
		if err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if taken {
			return apperr.Conflict(msgRescheduleTaken)
		}
		if err := s.appts.UpdateDate(ctx, id, at); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return notFound(id)
			}
			return fmt.Errorf("reschedule appointment %d: %w", id, err)
		}
		a.AppointmentDate = at
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.localize(out), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		err := s.appts.Delete(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return notFound(id)
		}
		if err != nil {
			return fmt.Errorf("delete appointment %d: %w", id, err)
		}
		return nil
	})
}

func (s *Service) count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.appts.Count(ctx, f)
		return err
	})
	return n, err
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, Filter{})
}

func (s *Service) CountByStatus(ctx context.Context, status string) (int64, error) {
	normalized, _ := NormalizeStatus(status)
	return s.count(ctx, Filter{Status: normalized})
}

func (s *Service) CountToday(ctx context.Context) (int64, error) {
	return s.count(ctx, s.todayFilter())
}

func (s *Service) CountUpcoming(ctx context.Context) (int64, error) {
	return s.count(ctx, s.upcomingFilter())
}

func (s *Service) CountByDoctor(ctx context.Context, doctorID int64) (int64, error) {
	return s.count(ctx, Filter{DoctorID: &doctorID})
}

func (s *Service) CountByPatient(ctx context.Context, patientID int64) (int64, error) {
	return s.count(ctx, Filter{PatientID: &patientID})
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		counts := []struct {
			dst *int64
			f   Filter
		}{
			{&st.TotalAppointments, Filter{}},
			{&st.BookedAppointments, Filter{Status: StatusBooked}},
			{&st.CompletedAppointments, Filter{Status: StatusCompleted}},
			{&st.CancelledAppointments, Filter{Status: StatusCancelled}},
			{&st.TodaysAppointments, s.todayFilter()},
		}
		for _, c := range counts {
			n, err := s.appts.Count(ctx, c.f)
			if err != nil {
				return err
			}
			*c.dst = n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("appointment stats: %w", err)
	}
	return &st, nil
}

func (s *Service) localize(a *Appointment) *Appointment {
	if a != nil {
		a.AppointmentDate = a.AppointmentDate.In(s.loc)
	}
	return a
}

func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
