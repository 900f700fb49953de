package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/INFO333/mhoms-api/internal/domain/doctor"
	"github.com/INFO333/mhoms-api/internal/domain/identity"
	"github.com/INFO333/mhoms-api/internal/domain/patient"
	"github.com/INFO333/mhoms-api/internal/domain/scheduling"
)

type PatientStats interface {
	Stats(ctx context.Context) (*patient.Stats, error)
}

type DoctorStats interface {
	Stats(ctx context.Context) (*doctor.Stats, error)
}

type AppointmentStats interface {
	Stats(ctx context.Context) (*scheduling.Stats, error)
	CountUpcoming(ctx context.Context) (int64, error)
}

type UserCounter interface {
	CountUsers(ctx context.Context) (*identity.UserCounts, error)
}

// Stats is the full administrative overview.
type Stats struct {
	Patients             *patient.Stats       `json:"patients"`
	Doctors              *doctor.Stats        `json:"doctors"`
	Appointments         *scheduling.Stats    `json:"appointments"`
	Users                *identity.UserCounts `json:"users"`
	UpcomingAppointments int64                `json:"upcomingAppointments"`
	GeneratedAt          time.Time            `json:"generatedAt"`
}

type Summary struct {
	TotalPatients       int64 `json:"totalPatients"`
	ActiveDoctors       int64 `json:"activeDoctors"`
	TodaysAppointments  int64 `json:"todaysAppointments"`
	PendingAppointments int64 `json:"pendingAppointments"`
}

type Service struct {
	patients     PatientStats
	doctors      DoctorStats
	appointments AppointmentStats
	users        UserCounter
	loc          *time.Location
	now          func() time.Time
}

func NewService(patients PatientStats, doctors DoctorStats, appointments AppointmentStats, users UserCounter, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		patients:     patients,
		doctors:      doctors,
		appointments: appointments,
		users:        users,
		loc:          loc,
		now:          time.Now,
	}
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	ps, err := s.patients.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("patient stats: %w", err)
	}
	ds, err := s.doctors.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("doctor stats: %w", err)
	}
	as, err := s.appointments.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointment stats: %w", err)
	}
	upcoming, err := s.appointments.CountUpcoming(ctx)
	if err != nil {
		return nil, fmt.Errorf("count upcoming appointments: %w", err)
	}
	uc, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("user counts: %w", err)
	}
	return &Stats{
		Patients:             ps,
		Doctors:              ds,
		Appointments:         as,
		Users:                uc,
		UpcomingAppointments: upcoming,
		GeneratedAt:          s.now().In(s.loc),
	}, nil
}

// Summary reports the headline numbers. Pending means still BOOKED.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	ps, err := s.patients.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("patient stats: %w", err)
	}
	ds, err := s.doctors.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("doctor stats: %w", err)
	}
	as, err := s.appointments.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointment stats: %w", err)
	}
	return &Summary{
		TotalPatients:       ps.TotalPatients,
		ActiveDoctors:       ds.ActiveDoctors,
		TodaysAppointments:  as.TodaysAppointments,
		PendingAppointments: as.BookedAppointments,
	}, nil
}
