package patient

import (
	"strings"
	"time"
)

// Patient maps to the patients table.
type Patient struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Age       int       `db:"age" json:"age"`
	Gender    string    `db:"gender" json:"gender"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Input is the create/update request body.
type Input struct {
	Name   string `json:"name" validate:"required"`
	Age    *int   `json:"age" validate:"required,min=0"`
	Gender string `json:"gender" validate:"required"`
	Phone  string `json:"phone" validate:"required,phone"`
	Email  string `json:"email" validate:"required,email"`
}

func (in Input) apply(p *Patient) {
	p.Name = strings.TrimSpace(in.Name)
	if in.Age != nil {
		p.Age = *in.Age
	}
	p.Gender = strings.TrimSpace(in.Gender)
	p.Phone = in.Phone
	p.Email = strings.TrimSpace(in.Email)
}

// SearchCriteria holds the optional filters of a patient search; unset
// fields are ignored.
type SearchCriteria struct {
	Name   string
	Gender string
	MinAge *int
	MaxAge *int
}

// Stats is the GET /patients/stats body.
type Stats struct {
	TotalPatients        int64 `json:"totalPatients"`
	MalePatients         int64 `json:"malePatients"`
	FemalePatients       int64 `json:"femalePatients"`
	PatientsCreatedToday int64 `json:"patientsCreatedToday"`
}

// SortFields maps sortable JSON fields to columns.
var SortFields = map[string]string{
	"id":        "id",
	"name":      "name",
	"age":       "age",
	"gender":    "gender",
	"phone":     "phone",
	"email":     "email",
	"createdAt": "created_at",
}

const (
	DefaultSortBy  = "id"
	DefaultSortDir = "asc"
)
