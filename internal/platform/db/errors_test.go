package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestNotFoundIfNoRows(t *testing.T) {
	if err := NotFoundIfNoRows(pgx.ErrNoRows); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	other := errors.New("boom")
	if err := NotFoundIfNoRows(other); err != other {
		t.Errorf("expected passthrough, got %v", err)
	}
	if err := NotFoundIfNoRows(nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestConstraintClassification(t *testing.T) {
	unique := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "uk_appointments_doctor_date",
		Message:        "duplicate key value violates unique constraint",
		Detail:         "Key (doctor_id, appointment_date)=(1, 2026-01-01 10:00:00+00) already exists.",
	}
	wrapped := fmt.Errorf("insert appointment: %w", unique)

	if !IsUniqueViolation(wrapped) {
		t.Error("expected unique violation through wrapping")
	}
	if IsForeignKeyViolation(wrapped) || IsCheckViolation(wrapped) {
		t.Error("unexpected classification")
	}
	if got := ConstraintText(wrapped); got == "" {
		t.Error("expected constraint text")
	}

	fk := &pgconn.PgError{Code: "23503"}
	if !IsForeignKeyViolation(fk) {
		t.Error("expected foreign key violation")
	}
	check := &pgconn.PgError{Code: "23514"}
	if !IsCheckViolation(check) {
		t.Error("expected check violation")
	}

	plain := errors.New("plain")
	if IsUniqueViolation(plain) || ConstraintText(plain) != "" {
		t.Error("plain errors must not classify")
	}
}
