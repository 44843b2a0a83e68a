package models

import (
	"sync"
	"testing"

	"gorm.io/gorm/schema"
)

// The lifecycle services address the partner columns by name in raw
// predicates and Update column strings (partner_1_id, partner_1_ready, …).
// The default naming strategy would drop the underscore before the digit,
// so the explicit column tags must hold.
func TestStudySessionColumnNames(t *testing.T) {
	s, err := schema.Parse(&StudySession{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("schema parse: %v", err)
	}

	want := map[string]string{
		"Partner1ID":       "partner_1_id",
		"Partner2ID":       "partner_2_id",
		"Partner1Ready":    "partner_1_ready",
		"Partner2Ready":    "partner_2_ready",
		"Partner1Rewarded": "partner_1_rewarded",
		"Partner2Rewarded": "partner_2_rewarded",
	}
	for field, column := range want {
		f := s.LookUpField(field)
		if f == nil {
			t.Fatalf("field %s not found in parsed schema", field)
		}
		if f.DBName != column {
			t.Errorf("field %s maps to column %q, want %q", field, f.DBName, column)
		}
	}
}
