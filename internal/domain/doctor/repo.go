package doctor

import (
	"context"

	"github.com/INFO333/mhoms-api/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]*Doctor, error)
	ListActive(ctx context.Context) ([]*Doctor, error)
	Search(ctx context.Context, c SearchCriteria, page pagination.Params) ([]*Doctor, int64, error)
	Specializations(ctx context.Context) ([]string, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountByActive(ctx context.Context, active bool) (int64, error)
	CountBySpecialization(ctx context.Context, specialization string) (int64, error)
}
