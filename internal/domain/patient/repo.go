package patient

import (
	"context"
	"time"

	"github.com/INFO333/mhoms-api/pkg/pagination"
)

// Repository is the persistence interface for patients. Lookups of a
// missing row return db.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]*Patient, error)
	List(ctx context.Context, page pagination.Params) ([]*Patient, int64, error)
	Search(ctx context.Context, c SearchCriteria, page pagination.Params) ([]*Patient, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountByGender(ctx context.Context, gender string) (int64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}
