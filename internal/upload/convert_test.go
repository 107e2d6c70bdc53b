package upload

import (
	"testing"
	"time"
)

func TestConvertSessionDeterministicID(t *testing.T) {
	s := exportSession{
		ID:    "watch-2026-04-01-0001",
		Type:  "running",
		Start: time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC),
	}

	a, err := convertSession(s, "watch")
	if err != nil {
		t.Fatalf("convertSession: %v", err)
	}
	b, err := convertSession(s, "watch")
	if err != nil {
		t.Fatalf("convertSession: %v", err)
	}

	if a.ID == nil || b.ID == nil {
		t.Fatal("expected derived session IDs")
	}
	if *a.ID != *b.ID {
		t.Errorf("IDs differ across conversions: %v vs %v", *a.ID, *b.ID)
	}
	if a.Source != "watch/running" {
		t.Errorf("source = %q, want watch/running", a.Source)
	}
}

func TestConvertSessionWithoutExportID(t *testing.T) {
	s := exportSession{
		Start: time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC),
	}

	p, err := convertSession(s, "export")
	if err != nil {
		t.Fatalf("convertSession: %v", err)
	}
	if p.ID != nil {
		t.Error("expected nil ID when export carries none")
	}
	if p.Source != "export" {
		t.Errorf("source = %q, want export", p.Source)
	}
}

func TestConvertSessionRejectsBadInterval(t *testing.T) {
	start := time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC)

	cases := []exportSession{
		{ID: "a", Start: start, End: start},
		{ID: "b", Start: start, End: start.Add(-time.Minute)},
		{ID: "c", End: start},
		{ID: "d", Start: start},
	}
	for _, s := range cases {
		if _, err := convertSession(s, "watch"); err == nil {
			t.Errorf("session %q: expected error", s.ID)
		}
	}
}
