package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
	"github.com/INFO333/mhoms-api/internal/platform/db"
	"github.com/INFO333/mhoms-api/pkg/pagination"
)

type Service struct {
	repo Repository
	tx   db.Transactor
}

func NewService(repo Repository, tx db.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

func notFound(id int64) error {
	return apperr.NotFound("Doctor not found with id: %d", id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Doctor, error) {
	d := Doctor{Active: true}
	in.apply(&d)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.ensureUnique(ctx, d.Email, d.Phone); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, &d); err != nil {
			return fmt.Errorf("create doctor: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ensureUnique checks the non-empty arguments against existing doctors,
// email first.
func (s *Service) ensureUnique(ctx context.Context, email, phone string) error {
	if email != "" {
		exists, err := s.repo.ExistsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("check doctor email: %w", err)
		}
		if exists {
			return apperr.Conflict("Doctor with email '%s' already exists", email)
		}
	}
	if phone != "" {
		exists, err := s.repo.ExistsByPhone(ctx, phone)
		if err != nil {
			return fmt.Errorf("check doctor phone: %w", err)
		}
		if exists {
			return apperr.Conflict("Doctor with phone '%s' already exists", phone)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Doctor, error) {
	var d *Doctor
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.get(ctx, id)
		return err
	})
	return d, err
}

func (s *Service) get(ctx context.Context, id int64) (*Doctor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get doctor %d: %w", id, err)
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]*Doctor, error) {
	var items []*Doctor
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.ListAll(ctx)
		return err
	})
	return items, err
}

func (s *Service) ListActive(ctx context.Context) ([]*Doctor, error) {
	var items []*Doctor
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.ListActive(ctx)
		return err
	})
	return items, err
}

func (s *Service) ListPage(ctx context.Context, page pagination.Params) ([]*Doctor, int64, error) {
	return s.Search(ctx, SearchCriteria{}, page)
}

// BySpecialization pages doctors whose specialization contains the given
// text, ignoring case.
func (s *Service) BySpecialization(ctx context.Context, specialization string, page pagination.Params) ([]*Doctor, int64, error) {
	return s.Search(ctx, SearchCriteria{Specialization: specialization}, page)
}

func (s *Service) Search(ctx context.Context, c SearchCriteria, page pagination.Params) ([]*Doctor, int64, error) {
	var (
		items []*Doctor
		total int64
	)
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		items, total, err = s.repo.Search(ctx, c, page)
		return err
	})
	return items, total, err
}

func (s *Service) Specializations(ctx context.Context) ([]string, error) {
	var specs []string
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		specs, err = s.repo.Specializations(ctx)
		return err
	})
	return specs, err
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (*Doctor, error) {
	var out *Doctor
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
		if err := s.save(ctx, existing); err != nil {
			return err
		}
		out = existing
		return nil
	})
	return out, err
}

// ToggleStatus flips the active flag and returns the updated doctor.
func (s *Service) ToggleStatus(ctx context.Context, id int64) (*Doctor, error) {
	var out *Doctor
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		d.Active = !d.Active
		if err := s.save(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

func (s *Service) save(ctx context.Context, d *Doctor) error {
	err := s.repo.Update(ctx, d)
	if errors.Is(err, db.ErrNotFound) {
		return notFound(d.ID)
	}
	if err != nil {
		return fmt.Errorf("update doctor %d: %w", d.ID, err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		err := s.repo.Delete(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return notFound(id)
		}
		if err != nil {
			return fmt.Errorf("delete doctor %d: %w", id, err)
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

func (s *Service) CountActive(ctx context.Context, active bool) (int64, error) {
	var n int64
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.CountByActive(ctx, active)
		return err
	})
	return n, err
}

func (s *Service) CountBySpecialization(ctx context.Context, specialization string) (int64, error) {
	var n int64
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.CountBySpecialization(ctx, specialization)
		return err
	})
	return n, err
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		if st.TotalDoctors, err = s.repo.Count(ctx); err != nil {
			return err
		}
		if st.ActiveDoctors, err = s.repo.CountByActive(ctx, true); err != nil {
			return err
		}
		if st.InactiveDoctors, err = s.repo.CountByActive(ctx, false); err != nil {
			return err
		}
		specs, err := s.repo.Specializations(ctx)
		if err != nil {
			return err
		}
		st.TotalSpecializations = len(specs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("doctor stats: %w", err)
	}
	return &st, nil
}
