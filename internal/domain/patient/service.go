package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
	"github.com/INFO333/mhoms-api/internal/platform/db"
	"github.com/INFO333/mhoms-api/pkg/pagination"
)

type Service struct {
	repo Repository
	tx   db.Transactor
	loc  *time.Location
	now  func() time.Time
}

// NewService builds the patient service. loc defines the calendar day used
// by the created-today statistic; nil means UTC.
func NewService(repo Repository, tx db.Transactor, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, tx: tx, loc: loc, now: time.Now}
}

func notFound(id int64) error {
	return apperr.NotFound("Patient not found with id: %d", id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Patient, error) {
	var p Patient
	in.apply(&p)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.ensureUnique(ctx, p.Email, p.Phone); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, &p); err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) ensureUnique(ctx context.Context, email, phone string) error {
	if email != "" {
		exists, err := s.repo.ExistsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("check patient email: %w", err)
		}
		if exists {
			return apperr.Conflict("Patient with email '%s' already exists", email)
		}
	}
	if phone != "" {
		exists, err := s.repo.ExistsByPhone(ctx, phone)
		if err != nil {
			return fmt.Errorf("check patient phone: %w", err)
		}
		if exists {
			return apperr.Conflict("Patient with phone '%s' already exists", phone)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Patient, error) {
	var p *Patient
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.get(ctx, id)
		return err
	})
	return p, err
}

func (s *Service) get(ctx context.Context, id int64) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %d: %w", id, err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*Patient, error) {
	var items []*Patient
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.ListAll(ctx)
		return err
	})
	return items, err
}

func (s *Service) ListPage(ctx context.Context, page pagination.Params) ([]*Patient, int64, error) {
	return s.Search(ctx, SearchCriteria{}, page)
}

func (s *Service) Search(ctx context.Context, c SearchCriteria, page pagination.Params) ([]*Patient, int64, error) {
	if c.MinAge != nil && c.MaxAge != nil && *c.MinAge > *c.MaxAge {
		return nil, 0, apperr.InvalidArgument("minAge must not be greater than maxAge")
	}
	var (
		items []*Patient
		total int64
	)
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		items, total, err = s.repo.Search(ctx, c, page)
		return err
	})
	return items, total, err
}

// Update replaces every field of the patient. Uniqueness is re-checked only
// for an email or phone that differs from the stored value.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Patient, error) {
	var out *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		var email, phone string
		if in.Email != existing.Email {
			email = in.Email
		}
		if in.Phone != existing.Phone {
			phone = in.Phone
		}
		if err := s.ensureUnique(ctx, email, phone); err != nil {
			return err
		}

		in.apply(existing)
		if err := s.repo.Update(ctx, existing); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return notFound(id)
			}
			return fmt.Errorf("update patient %d: %w", id, err)
		}
		out = existing
		return nil
	})
	return out, err
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		err := s.repo.Delete(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return notFound(id)
		}
		if err != nil {
			return fmt.Errorf("delete patient %d: %w", id, err)
		}
		return nil
	})
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.Count(ctx)
		return err
	})
	return n, err
}

func (s *Service) CountByGender(ctx context.Context, gender string) (int64, error) {
	var n int64
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.CountByGender(ctx, gender)
		return err
	})
	return n, err
}

// CountCreatedToday counts patients registered since local midnight.
func (s *Service) CountCreatedToday(ctx context.Context) (int64, error) {
	var n int64
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.countCreatedToday(ctx)
		return err
	})
	return n, err
}

func (s *Service) countCreatedToday(ctx context.Context) (int64, error) {
	from, to := dayBounds(s.now(), s.loc)
	return s.repo.CountCreatedBetween(ctx, from, to)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		if st.TotalPatients, err = s.repo.Count(ctx); err != nil {
			return err
		}
		if st.MalePatients, err = s.repo.CountByGender(ctx, "Male"); err != nil {
			return err
		}
		if st.FemalePatients, err = s.repo.CountByGender(ctx, "Female"); err != nil {
			return err
		}
		st.PatientsCreatedToday, err = s.countCreatedToday(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("patient stats: %w", err)
	}
	return &st, nil
}

// dayBounds returns [midnight, next midnight) of t's calendar day in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
