package doctor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/INFO333/mhoms-api/internal/platform/db"
	"github.com/INFO333/mhoms-api/pkg/pagination"
)

const doctorColumns = `id, name, specialization, phone, email, active`

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (name, specialization, phone, email, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		d.Name, d.Specialization, d.Phone, d.Email, d.Active,
	).Scan(&d.ID)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFoundIfNoRows(err)
	}
	return d, nil
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET name = $2, specialization = $3, phone = $4, email = $5, active = $6
		WHERE id = $1`,
		d.ID, d.Name, d.Specialization, d.Phone, d.Email, d.Active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) ListAll(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorColumns+` FROM doctors ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectDoctors(rows)
}

func (r *doctorRepoPG) ListActive(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectDoctors(rows)
}

func (r *doctorRepoPG) Search(ctx context.Context, c SearchCriteria, page pagination.Params) ([]*Doctor, int64, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if c.Name != "" {
		where += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+c.Name+"%")
		idx++
	}
	if c.Specialization != "" {
		where += fmt.Sprintf(` AND specialization ILIKE $%d`, idx)
		args = append(args, "%"+c.Specialization+"%")
		idx++
	}
	if c.Active != nil {
		where += fmt.Sprintf(` AND active = $%d`, idx)
		args = append(args, *c.Active)
		idx++
	}

	var total int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + doctorColumns + ` FROM doctors` + where + ` ` + page.OrderBy(SortFields) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectDoctors(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *doctorRepoPG) Specializations(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT DISTINCT specialization FROM doctors ORDER BY specialization`)
	if err != nil {
		return nil, err
	}
	specs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if specs == nil {
		specs = []string{}
	}
	return specs, nil
}

func (r *doctorRepoPG) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (r *doctorRepoPG) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE phone = $1)`, phone).Scan(&exists)
	return exists, err
}

func (r *doctorRepoPG) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&n)
	return n, err
}

func (r *doctorRepoPG) CountByActive(ctx context.Context, active bool) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors WHERE active = $1`, active).Scan(&n)
	return n, err
}

func (r *doctorRepoPG) CountBySpecialization(ctx context.Context, specialization string) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctors WHERE LOWER(specialization) = LOWER($1)`, specialization).Scan(&n)
	return n, err
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(&d.ID, &d.Name, &d.Specialization, &d.Phone, &d.Email, &d.Active); err != nil {
		return nil, err
	}
	return &d, nil
}

func collectDoctors(rows pgx.Rows) ([]*Doctor, error) {
	defer rows.Close()
	items := []*Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
