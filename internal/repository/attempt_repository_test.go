package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/emesedutech/cbt-akm/internal/model"
)

// attempts.id is BIGSERIAL, so every scan target for it must accept int8.
func TestAttemptIDScansFromBigserial(t *testing.T) {
	m := pgtype.NewMap()

	var a model.Attempt
	if err := m.Scan(pgtype.Int8OID, pgtype.TextFormatCode, []byte("42"), &a.ID); err != nil {
		t.Fatalf("scanning int8 into Attempt.ID: %v", err)
	}
	if a.ID != 42 {
		t.Fatalf("Attempt.ID = %d, want 42", a.ID)
	}
}

// integrity_events.id shares the same column type.
func TestIntegrityRecordIDScansFromBigserial(t *testing.T) {
	m := pgtype.NewMap()

	var rec model.IntegrityRecord
	if err := m.Scan(pgtype.Int8OID, pgtype.TextFormatCode, []byte("7"), &rec.ID); err != nil {
		t.Fatalf("scanning int8 into IntegrityRecord.ID: %v", err)
	}
	if rec.ID != 7 {
		t.Fatalf("IntegrityRecord.ID = %d, want 7", rec.ID)
	}
}
