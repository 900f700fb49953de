package doctor

import "strings"

type Doctor struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	Specialization string `db:"specialization" json:"specialization"`
	Phone          string `db:"phone" json:"phone"`
	Email          string `db:"email" json:"email"`
	Active         bool   `db:"active" json:"active"`
}

// Input is the create/update request body. A missing active flag means
// true on create and "unchanged" on update.
type Input struct {
	Name           string `json:"name" validate:"required"`
	Specialization string `json:"specialization" validate:"required"`
	Phone          string `json:"phone" validate:"required,phone"`
	Email          string `json:"email" validate:"required,email"`
	Active         *bool  `json:"active"`
}

func (in Input) apply(d *Doctor) {
	d.Name = strings.TrimSpace(in.Name)
	d.Specialization = strings.TrimSpace(in.Specialization)
	d.Phone = in.Phone
	d.Email = strings.TrimSpace(in.Email)
	if in.Active != nil {
		d.Active = *in.Active
	}
}

type SearchCriteria struct {
	Name           string
	Specialization string
	Active         *bool
}

type Stats struct {
	TotalDoctors         int64 `json:"totalDoctors"`
	ActiveDoctors        int64 `json:"activeDoctors"`
	InactiveDoctors      int64 `json:"inactiveDoctors"`
	TotalSpecializations int   `json:"totalSpecializations"`
}

var SortFields = map[string]string{
	"id":             "id",
	"name":           "name",
	"specialization": "specialization",
	"phone":          "phone",
	"email":          "email",
	"active":         "active",
}

const (
	DefaultSortBy  = "id"
	DefaultSortDir = "asc"
)
