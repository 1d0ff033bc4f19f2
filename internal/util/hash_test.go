package util

import (
	"testing"
	"time"
)

func TestRecordID(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	id := RecordID("crates/a.json", at)
	if len(id) != 16 {
		t.Fatalf("expected 16 hex chars, got %q", id)
	}
	if RecordID("crates/a.json", at) != id {
		t.Error("expected identical inputs to give identical ids")
	}
	if RecordID("crates/b.json", at) == id {
		t.Error("expected a different path to change the id")
	}
	if RecordID("crates/a.json", at.Add(time.Nanosecond)) == id {
		t.Error("expected a different time to change the id")
	}
	if RecordID("crates/a.json", at.In(time.FixedZone("X", 3600))) != id {
		t.Error("expected the id to ignore the time zone")
	}
}
