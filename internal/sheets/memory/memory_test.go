package memory

import (
	"context"
	"testing"

	"finboard/internal/sheets"
)

func TestJournalAppendAndRows(t *testing.T) {
	j := New()
	for i, id := range []string{"t1", "t2"} {
		ref, err := j.Append(context.Background(), sheets.JournalRow{TransactionID: id})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if want := []string{"mem:1", "mem:2"}[i]; ref != want {
			t.Errorf("ref = %q, want %q", ref, want)
		}
	}

	rows := j.Rows()
	if len(rows) != 2 || rows[0].TransactionID != "t1" || rows[1].TransactionID != "t2" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	rows[0].TransactionID = "changed"
	if j.Rows()[0].TransactionID != "t1" {
		t.Error("Rows must return a copy")
	}
}
