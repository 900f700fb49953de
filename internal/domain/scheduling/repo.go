package scheduling

import (
	"context"
	"time"

	"github.com/INFO333/mhoms-api/pkg/pagination"
)

// Repository persists appointments. Reads return the appointment with its
// patient and doctor populated.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateDate(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]*Appointment, error)
	// Find returns every match ordered by appointment time.
	Find(ctx context.Context, f Filter) ([]*Appointment, error)
	Search(ctx context.Context, f Filter, page pagination.Params) ([]*Appointment, int64, error)
	Count(ctx context.Context, f Filter) (int64, error)
	// ExistsByDoctorAndDate reports whether the doctor already has an
	// appointment at exactly at. excludeID, when non-zero, is ignored.
	ExistsByDoctorAndDate(ctx context.Context, doctorID int64, at time.Time, excludeID int64) (bool, error)
}
