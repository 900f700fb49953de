package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/INFO333/mhoms-api/internal/domain/doctor"
	"github.com/INFO333/mhoms-api/internal/domain/patient"
	"github.com/INFO333/mhoms-api/internal/platform/db"
	"github.com/INFO333/mhoms-api/pkg/pagination"
)

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// The patient and doctor ids come from the appointment row so that the only
// "id" output column is the appointment's; ORDER BY id stays unambiguous.
const apptSelect = `SELECT a.id, a.patient_id, a.doctor_id, a.appointment_date, a.status,
	p.name, p.age, p.gender, p.phone, p.email, p.created_at,
	d.name, d.specialization, d.phone, d.email, d.active
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id`

func (r *appointmentRepoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var (
		a Appointment
		p patient.Patient
		d doctor.Doctor
	)
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &a.Status,
		&p.Name, &p.Age, &p.Gender, &p.Phone, &p.Email, &p.CreatedAt,
		&d.Name, &d.Specialization, &d.Phone, &d.Email, &d.Active)
	if err != nil {
		return nil, err
	}
	p.ID = a.PatientID
	d.ID = a.DoctorID
	a.Patient = &p
	a.Doctor = &d
	return &a, nil
}

func (r *appointmentRepoPG) collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, appointment_date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		a.PatientID, a.DoctorID, a.AppointmentDate, a.Status,
	).Scan(&a.ID)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := r.scanAppt(r.conn(ctx).QueryRow(ctx, apptSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, db.NotFoundIfNoRows(err)
	}
	return a, nil
}

func (r *appointmentRepoPG) exec(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, status)
}

func (r *appointmentRepoPG) UpdateDate(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, `UPDATE appointments SET appointment_date = $2 WHERE id = $1`, id, at)
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
}

func (r *appointmentRepoPG) ListAll(ctx context.Context) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, apptSelect+` ORDER BY a.id`)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// where renders f as a WHERE clause over the "a" alias.
func where(f Filter) (string, []interface{}) {
	clause := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(cond string, v interface{}) {
		clause += fmt.Sprintf(` AND `+cond, idx)
		args = append(args, v)
		idx++
	}
	if f.PatientID != nil {
		add(`a.patient_id = $%d`, *f.PatientID)
	}
	if f.DoctorID != nil {
		add(`a.doctor_id = $%d`, *f.DoctorID)
	}
	if f.Status != "" {
		add(`LOWER(a.status) = LOWER($%d)`, f.Status)
	}
	if f.From != nil {
		add(`a.appointment_date >= $%d`, *f.From)
	}
	if f.To != nil {
		add(`a.appointment_date <= $%d`, *f.To)
	}
	if f.After != nil {
		add(`a.appointment_date > $%d`, *f.After)
	}
	if f.Before != nil {
		add(`a.appointment_date < $%d`, *f.Before)
	}
	return clause, args
}

func (r *appointmentRepoPG) Find(ctx context.Context, f Filter) ([]*Appointment, error) {
	clause, args := where(f)
	rows, err := r.conn(ctx).Query(ctx, apptSelect+clause+` ORDER BY a.appointment_date, a.id`, args...)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *appointmentRepoPG) Search(ctx context.Context, f Filter, page pagination.Params) ([]*Appointment, int64, error) {
	total, err := r.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	clause, args := where(f)
	n := len(args)
	query := apptSelect + clause + ` ` + page.OrderBy(SortFields) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *appointmentRepoPG) Count(ctx context.Context, f Filter) (int64, error) {
	clause, args := where(f)
	var n int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+clause, args...).Scan(&n)
	return n, err
}

func (r *appointmentRepoPG) ExistsByDoctorAndDate(ctx context.Context, doctorID int64, at time.Time, excludeID int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2 AND id <> $3
		)`, doctorID, at, excludeID).Scan(&exists)
	return exists, err
}
